package handlers

import (
	"errors"
	"net/http"

	"memories-backend/internal/middleware"
	"memories-backend/internal/models"
	"memories-backend/internal/services"
)

// ContactHandler handles contact import and invitation HTTP requests
type ContactHandler struct {
	contactService *services.ContactService
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService *services.ContactService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
	}
}

// SyncContactsRequest carries the device address book and its permission state
type SyncContactsRequest struct {
	Permission models.PermissionState `json:"permission"`
	Contacts   []models.Contact       `json:"contacts"`
}

// PermissionResponse tells the client to send the user to settings
type PermissionResponse struct {
	Error       string                 `json:"error"`
	Permission  models.PermissionState `json:"permission"`
	SettingsURL string                 `json:"settings_url"`
}

// ManualContactRequest represents the request body for adding a picked contact
type ManualContactRequest struct {
	Contact   models.Contact   `json:"contact"`
	Displayed []models.Contact `json:"displayed"`
}

// InviteRequest represents the request body for preparing an invitation
type InviteRequest struct {
	Contact models.Contact `json:"contact"`
}

// ConfirmInviteRequest reports what the device SMS composer did
type ConfirmInviteRequest struct {
	Contact      models.Contact   `json:"contact"`
	SMSAvailable bool             `json:"sms_available"`
	Result       models.SMSResult `json:"result"`
}

// ConfirmInviteResponse is the outcome of an invitation
type ConfirmInviteResponse struct {
	Sent    bool           `json:"sent"`
	Contact models.Contact `json:"contact"`
}

// SyncContacts handles POST /api/v1/contacts/sync
func (h *ContactHandler) SyncContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SyncContactsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contacts, err := h.contactService.LoadContacts(ctx, middleware.GetUserID(ctx), req.Permission, req.Contacts)
	if err != nil {
		var permErr *services.PermissionError
		if errors.As(err, &permErr) {
			respondJSON(w, http.StatusForbidden, PermissionResponse{
				Error:       permErr.Error(),
				Permission:  permErr.State,
				SettingsURL: services.SettingsURL,
			})
			return
		}
		respondServiceError(w, r, err, "Failed to load contacts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

// AddManualContact handles POST /api/v1/contacts/manual
func (h *ContactHandler) AddManualContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ManualContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	manual, err := h.contactService.AddManualContact(ctx, middleware.GetUserID(ctx), req.Contact, req.Displayed)
	if err != nil {
		respondServiceError(w, r, err, "Failed to add contact")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"contacts": manual})
}

// PrepareInvite handles POST /api/v1/invites
func (h *ContactHandler) PrepareInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	invite, err := h.contactService.PrepareInvite(ctx, middleware.GetUserID(ctx), req.Contact)
	if err != nil {
		respondServiceError(w, r, err, "Failed to prepare invitation")
		return
	}

	respondJSON(w, http.StatusOK, invite)
}

// ConfirmInvite handles POST /api/v1/invites/confirm
func (h *ContactHandler) ConfirmInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ConfirmInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	composer := services.ReportedComposer{Available: req.SMSAvailable, Result: req.Result}
	sent, err := h.contactService.InviteContact(ctx, &req.Contact, middleware.GetUserID(ctx), composer)
	if err != nil {
		respondServiceError(w, r, err, "Failed to invite contact")
		return
	}

	respondJSON(w, http.StatusOK, ConfirmInviteResponse{Sent: sent, Contact: req.Contact})
}
