// ABOUTME: Static role policy mapping each role to the operations it may run
// ABOUTME: Changing the role is process-local and never persisted
package crm

import (
	"context"
	"slices"

	"github.com/harperreed/funnel/models"
)

// Mutating operations, as named in logs, metrics and the role policy.
const (
	OpChangeRole     = "change_role"
	OpCreateContact  = "create_contact"
	OpUpdateContact  = "update_contact"
	OpDeleteContact  = "delete_contact"
	OpCreateLead     = "create_lead"
	OpUpdateLead     = "update_lead"
	OpDeleteLead     = "delete_lead"
	OpImportLeads    = "import_leads"
	OpConvertLead    = "convert_lead"
	OpUpdateStage    = "update_stage"
	OpAddActivity    = "add_activity"
	OpAddTask        = "add_task"
	OpCompleteTask   = "complete_task"
	OpCreateCampaign = "create_campaign"
	OpUpdateCampaign = "update_campaign"
	OpDeleteCampaign = "delete_campaign"
	OpSendCampaign   = "send_campaign"
	OpAddDocument    = "add_document"
	OpDeleteDocument = "delete_document"
)

// Operations lists every mutating operation.
var Operations = []string{
	OpChangeRole,
	OpCreateContact, OpUpdateContact, OpDeleteContact,
	OpCreateLead, OpUpdateLead, OpDeleteLead, OpImportLeads, OpConvertLead,
	OpUpdateStage, OpAddActivity, OpAddTask, OpCompleteTask,
	OpCreateCampaign, OpUpdateCampaign, OpDeleteCampaign, OpSendCampaign,
	OpAddDocument, OpDeleteDocument,
}

var (
	salesOps = []string{
		OpChangeRole,
		OpCreateContact, OpUpdateContact, OpDeleteContact,
		OpUpdateStage, OpAddActivity, OpAddTask, OpCompleteTask,
		OpAddDocument, OpDeleteDocument,
	}
	marketingOps = []string{
		OpChangeRole,
		OpCreateLead, OpUpdateLead, OpDeleteLead, OpImportLeads, OpConvertLead,
		OpCreateCampaign, OpUpdateCampaign, OpDeleteCampaign, OpSendCampaign,
	}
	clientOps = []string{OpChangeRole}
)

var policy = map[models.Role][]string{
	models.RoleAdmin:     Operations,
	models.RoleSales:     salesOps,
	models.RoleMarketing: marketingOps,
	models.RoleClient:    clientOps,
}

// Allowed reports whether role may run op.
func Allowed(role models.Role, op string) bool {
	return slices.Contains(policy[role], op)
}

// PermittedOps returns the operations role may run, in policy order.
func PermittedOps(role models.Role) []string {
	return slices.Clone(policy[role])
}

// Role returns the current role.
func (s *Service) Role() models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Permitted reports whether the current role may run op.
func (s *Service) Permitted(op string) bool {
	return Allowed(s.Role(), op)
}

// ChangeRole switches the current role. It neither flushes nor publishes.
func (s *Service) ChangeRole(ctx context.Context, role string) (models.Role, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return "", err
	}
	err = s.run(ctx, OpChangeRole, func(*tx) error {
		s.role = r
		return nil
	})
	if err != nil {
		return "", err
	}
	return r, nil
}
