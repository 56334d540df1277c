package model

// All lists every model managed by migrations.
func All() []any {
	return []any{
		&Profile{},
		&PropertyStaff{},
		&VacancyNotice{},
		&VacancyNoticeMessage{},
		&MaintenanceRequest{},
		&MaintenanceCompletionReport{},
		&Approval{},
		&Notification{},
		&PushSubscription{},
	}
}
