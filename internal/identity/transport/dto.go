package transport

import "github.com/google/uuid"

// TelegramLinkResponse tells a staff member how to link the bot.
type TelegramLinkResponse struct {
	// Code is sent to the bot after /start.
	Code             string  `json:"code"`
	Linked           bool    `json:"linked"`
	TelegramUsername *string `json:"telegramUsername,omitempty"`
}

type ListManagersRequest struct {
	TenantID string `form:"tenantId" validate:"omitempty,uuid"`
}

type ManagerResponse struct {
	ID               uuid.UUID  `json:"id"`
	FullName         string     `json:"fullName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	TenantID         *uuid.UUID `json:"tenantId,omitempty"`
	TelegramLinked   bool       `json:"telegramLinked"`
	TelegramUsername *string    `json:"telegramUsername,omitempty"`
}

type ManagerListResponse struct {
	Items []ManagerResponse `json:"items"`
}
