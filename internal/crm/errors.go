package crm

import "errors"

// CRM errors. Records owned by someone else are reported as not found.
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrProjectNotFound        = errors.New("project not found")
	ErrTaskNotFound           = errors.New("task not found")
	ErrInvalidAssignee        = errors.New("assignee does not exist")
	ErrNotDeliveryHead        = errors.New("user is not a delivery head")
	ErrProjectAccountMismatch = errors.New("project does not belong to account")
	ErrInvalidStatus          = errors.New("invalid status")
)
