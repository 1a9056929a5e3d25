package handler

// RegisterTenantRequest opens a store together with its first admin
type RegisterTenantRequest struct {
	Slug          string `json:"slug" binding:"required,min=3,max=63" example:"acme"`
	Name          string `json:"name" binding:"required,min=1,max=200" example:"Acme Outfitters"`
	ContactEmail  string `json:"contact_email" binding:"omitempty,email,max=255" example:"owner@acme.test"`
	Domain        string `json:"domain" binding:"omitempty,fqdn,max=253" example:"shop.acme.test"`
	AdminEmail    string `json:"admin_email" binding:"required,email,max=255" example:"admin@acme.test"`
	AdminUsername string `json:"admin_username" binding:"required,min=2,max=50" example:"acme-admin"`
	AdminPassword string `json:"admin_password" binding:"required,min=8,max=128"`
}

// UpdateTenantRequest changes store details. Omitted fields are left as they
// are; an empty domain removes the custom domain.
type UpdateTenantRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Domain   *string `json:"domain" binding:"omitempty,max=253"`
	Currency *string `json:"currency" binding:"omitempty,len=3,alpha"`
	Locale   *string `json:"locale" binding:"omitempty,oneof=en zh-Hans"`
}
