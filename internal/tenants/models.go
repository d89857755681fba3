package tenants

import "time"

// Tenant is an account that owns cameras, rules and a WhatsApp destination.
// Token authenticates both the edge listener and the management API.
type Tenant struct {
	ID              int       `json:"id"`
	Token           string    `json:"token"`
	Username        string    `json:"username"`
	WhatsAppNumber  string    `json:"whatsapp_number,omitempty"`
	WhatsAppEnabled bool      `json:"whatsapp_enabled"`
	Timezone        string    `json:"timezone"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CanReceiveWhatsApp reports whether alerts may be dispatched to the tenant.
func (t *Tenant) CanReceiveWhatsApp() bool {
	return t.WhatsAppEnabled && t.WhatsAppNumber != ""
}

type UpdateTenantRequest struct {
	WhatsAppNumber  *string `json:"whatsapp_number,omitempty"`
	WhatsAppEnabled *bool   `json:"whatsapp_enabled,omitempty"`
	Timezone        *string `json:"timezone,omitempty"`
}
