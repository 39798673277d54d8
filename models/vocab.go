// ABOUTME: Closed vocabularies for stages, campaign targets, lead sources, activities and roles
// ABOUTME: Each Parse function accepts case, accent and separator variants of a canonical label
package models

import (
	"fmt"
	"strings"
)

// Stage is a position in the sales funnel.
type Stage string

const (
	StageLead        Stage = "Lead"
	StageProspect    Stage = "Prospect"
	StageProposal    Stage = "Proposal"
	StageNegotiation Stage = "Negotiation"
	StageClosedWon   Stage = "Closed-Won"
)

// InitialStage is the stage every newly constructed contact starts in.
const InitialStage = StageProspect

// Stages lists the stage vocabulary in funnel order.
var Stages = []Stage{StageLead, StageProspect, StageProposal, StageNegotiation, StageClosedWon}

// TargetAll is the campaign wildcard matching every stage.
const TargetAll = "All"

var stageAliases = buildIndex(map[string][]string{
	string(StageLead):        {"lead"},
	string(StageProspect):    {"prospecto"},
	string(StageProposal):    {"proposta"},
	string(StageNegotiation): {"negociação"},
	string(StageClosedWon):   {"closed won", "closed_won", "won", "venda fechada"},
})

var targetAliases = buildIndex(map[string][]string{
	TargetAll: {"todos", "*", "any"},
})

// ParseStage resolves s to a canonical stage label.
func ParseStage(s string) (Stage, error) {
	if label, ok := stageAliases[FoldKey(s)]; ok {
		return Stage(label), nil
	}
	return "", fmt.Errorf("%w: unknown stage %q (valid: %s)", ErrInvalidTransition, s, joinStages())
}

// IsValid reports whether st is a canonical stage label.
func (st Stage) IsValid() bool {
	for _, s := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Index returns the funnel position of st, or -1.
func (st Stage) Index() int {
	for i, s := range Stages {
		if s == st {
			return i
		}
	}
	return -1
}

// ParseTarget resolves a campaign target: a stage label or TargetAll.
func ParseTarget(s string) (string, error) {
	key := FoldKey(s)
	if label, ok := targetAliases[key]; ok {
		return label, nil
	}
	if label, ok := stageAliases[key]; ok {
		return label, nil
	}
	return "", fmt.Errorf("%w: unknown campaign target %q", ErrInvalidTransition, s)
}

func joinStages() string {
	names := make([]string, len(Stages))
	for i, s := range Stages {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Lead sources.
const (
	SourceWebsite  = "Website"
	SourceReferral = "Referral"
	SourceEvent    = "Event"
	SourceSocial   = "Social Media"
	SourceEmail    = "Email"
	SourceOther    = "Other"
)

// Sources lists the lead source vocabulary.
var Sources = []string{SourceWebsite, SourceReferral, SourceEvent, SourceSocial, SourceEmail, SourceOther}

var sourceAliases = buildIndex(map[string][]string{
	SourceWebsite:  {"site", "web"},
	SourceReferral: {"indicação", "indicacao"},
	SourceEvent:    {"evento", "palestra"},
	SourceSocial:   {"social", "redes sociais"},
	SourceEmail:    {"e-mail"},
	SourceOther:    {"outro"},
})

var sourceScores = map[string]int{
	SourceReferral: 50,
	SourceEvent:    30,
	SourceSocial:   20,
	SourceEmail:    15,
	SourceWebsite:  10,
	SourceOther:    5,
}

// ParseSource resolves s to a lead source; empty input means SourceWebsite.
func ParseSource(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return SourceWebsite, nil
	}
	if label, ok := sourceAliases[FoldKey(s)]; ok {
		return label, nil
	}
	return "", invalid("source", fmt.Sprintf("unknown source %q (valid: %s)", s, strings.Join(Sources, ", ")))
}

// ScoreForSource is the initial score a lead from source receives.
func ScoreForSource(source string) int {
	return sourceScores[source]
}

// Activity types.
const (
	ActivityCall          = "call"
	ActivityEmail         = "email"
	ActivityMeeting       = "meeting"
	ActivityNote          = "note"
	ActivityTaskCompleted = "task_completed"
	ActivityStageChange   = "stage_change"
)

// ActivityTypes lists the activity vocabulary.
var ActivityTypes = []string{ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTaskCompleted, ActivityStageChange}

var activityAliases = buildIndex(map[string][]string{
	ActivityCall:          {"chamada", "ligação", "phone"},
	ActivityEmail:         {"e-mail"},
	ActivityMeeting:       {"reunião"},
	ActivityNote:          {"nota"},
	ActivityTaskCompleted: {"tarefa concluída"},
	ActivityStageChange:   {"mudança de etapa"},
})

// ParseActivityType resolves s to an activity type.
func ParseActivityType(s string) (string, error) {
	if label, ok := activityAliases[FoldKey(s)]; ok {
		return label, nil
	}
	return "", invalid("activity type", fmt.Sprintf("unknown type %q (valid: %s)", s, strings.Join(ActivityTypes, ", ")))
}

// Document types.
const (
	DocumentProposal = "proposal"
	DocumentContract = "contract"
	DocumentOther    = "other"
)

var documentAliases = buildIndex(map[string][]string{
	DocumentProposal: {"proposta"},
	DocumentContract: {"contrato"},
	DocumentOther:    {"outro", "general"},
})

// ParseDocumentType resolves s to a document type; empty means DocumentOther.
func ParseDocumentType(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return DocumentOther, nil
	}
	if label, ok := documentAliases[FoldKey(s)]; ok {
		return label, nil
	}
	return "", invalid("document type", fmt.Sprintf("unknown type %q", s))
}

// Role is the coarse user role selecting which operations are permitted.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSales     Role = "sales"
	RoleMarketing Role = "marketing"
	RoleClient    Role = "client"
)

// Roles lists every role.
var Roles = []Role{RoleAdmin, RoleSales, RoleMarketing, RoleClient}

var roleAliases = buildIndex(map[string][]string{
	string(RoleAdmin):     {"gerente", "manager", "adm"},
	string(RoleSales):     {"vendedor", "seller"},
	string(RoleMarketing): {},
	string(RoleClient):    {"cliente"},
})

// ParseRole resolves s to a role.
func ParseRole(s string) (Role, error) {
	if label, ok := roleAliases[FoldKey(s)]; ok {
		return Role(label), nil
	}
	return "", invalid("role", fmt.Sprintf("unknown role %q", s))
}

// buildIndex maps the fold key of each canonical label and alias to the label.
func buildIndex(aliases map[string][]string) map[string]string {
	idx := make(map[string]string)
	for label, extra := range aliases {
		idx[FoldKey(label)] = label
		for _, a := range extra {
			idx[FoldKey(a)] = label
		}
	}
	return idx
}
