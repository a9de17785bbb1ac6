package models

// RetryItem is one redelivery candidate: a due notification joined with its
// alert and the resolved recipient.
type RetryItem struct {
	Notification Notification
	Alert        Alert
	Recipient    Recipient
}
