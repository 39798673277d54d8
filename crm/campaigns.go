// ABOUTME: Campaign operations and recipient targeting
// ABOUTME: Sends are idempotent per contact; stage matching ignores case and accents
package crm

import (
	"context"

	"github.com/harperreed/funnel/events"
	"github.com/harperreed/funnel/models"
	"github.com/harperreed/funnel/store"
)

// CampaignPatch holds the campaign fields to change. The recipient set is
// not editable.
type CampaignPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	TargetStage *string `json:"target_stage,omitempty"`
}

// SendResult reports the outcome of SendCampaign. Zero recipients is not an
// error.
type SendResult struct {
	CampaignID      int   `json:"campaign_id"`
	RecipientsAdded int   `json:"recipients_added"`
	Recipients      []int `json:"recipients"`
}

// ListCampaigns returns every campaign.
func (s *Service) ListCampaigns(ctx context.Context) []*models.Campaign {
	var out []*models.Campaign
	s.read(func(st *store.Store) { out = st.Campaigns() })
	return out
}

// GetCampaign returns the campaign with id.
func (s *Service) GetCampaign(ctx context.Context, id int) (*models.Campaign, error) {
	var (
		c   *models.Campaign
		err error
	)
	s.read(func(st *store.Store) { c, err = st.Campaign(id) })
	return c, err
}

// CreateCampaign validates in and stores a campaign that has reached nobody.
func (s *Service) CreateCampaign(ctx context.Context, in models.CampaignInput) (*models.Campaign, error) {
	var created *models.Campaign
	err := s.run(ctx, OpCreateCampaign, func(t *tx) error {
		c, err := models.NewCampaign(in, t.now)
		if err != nil {
			return err
		}
		if created, err = t.store.AddCampaign(c); err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
	return created, err
}

// UpdateCampaign applies patch to the campaign.
func (s *Service) UpdateCampaign(ctx context.Context, id int, patch CampaignPatch) (*models.Campaign, error) {
	var updated *models.Campaign
	err := s.run(ctx, OpUpdateCampaign, func(t *tx) error {
		var err error
		updated, err = t.store.UpdateCampaign(id, func(c *models.Campaign) error {
			if patch.Title != nil {
				c.Title = *patch.Title
			}
			if patch.Description != nil {
				c.Description = *patch.Description
			}
			if patch.TargetStage != nil {
				c.TargetStage = *patch.TargetStage
			}
			return nil
		})
		if err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
	return updated, err
}

// DeleteCampaign removes the campaign.
func (s *Service) DeleteCampaign(ctx context.Context, id int) error {
	return s.run(ctx, OpDeleteCampaign, func(t *tx) error {
		if err := t.store.DeleteCampaign(id); err != nil {
			return err
		}
		t.dirty = true
		return nil
	})
}

// SelectRecipients returns, in contact order, the ids of contacts the
// campaign targets and has not reached yet.
func SelectRecipients(c *models.Campaign, contacts []*models.Contact) []int {
	out := []int{}
	for _, contact := range contacts {
		if c.WasSentTo(contact.ID) {
			continue
		}
		if targets(c.TargetStage, contact.SalesStage) {
			out = append(out, contact.ID)
		}
	}
	return out
}

// targets reports whether a campaign aimed at target reaches a contact in
// stage. Both sides are normalized, so stored spellings never matter.
func targets(target string, stage models.Stage) bool {
	t, err := models.ParseTarget(target)
	if err != nil {
		return false
	}
	if t == models.TargetAll {
		return true
	}
	if st, err := models.ParseStage(string(stage)); err == nil {
		return string(st) == t
	}
	return models.FoldKey(string(stage)) == models.FoldKey(t)
}

// SendCampaign records the campaign as sent to every targeted contact it
// has not reached yet, adding an email activity to each. When nobody new is
// targeted nothing is flushed or published.
func (s *Service) SendCampaign(ctx context.Context, id int) (SendResult, error) {
	res := SendResult{CampaignID: id, Recipients: []int{}}
	err := s.run(ctx, OpSendCampaign, func(t *tx) error {
		campaign, err := t.store.Campaign(id)
		if err != nil {
			return err
		}
		// A campaign that fails validation would reject MarkSent below,
		// after contacts were already touched.
		if err := campaign.Validate(); err != nil {
			return err
		}
		selected := SelectRecipients(campaign, t.store.Contacts())
		if len(selected) == 0 {
			return nil
		}

		var reached []models.Contact
		for _, cid := range selected {
			updated, err := t.store.UpdateContact(cid, func(c *models.Contact) error {
				c.Activities = append(c.Activities, models.Activity{
					Type:        models.ActivityEmail,
					Description: "Sent campaign: " + campaign.Title,
					CreatedAt:   t.now,
				})
				c.UpdatedAt = t.now
				return nil
			})
			if err != nil {
				s.logger.Warn("campaign recipient skipped", "campaign", id, "contact", cid, "error", err)
				continue
			}
			reached = append(reached, *updated)
			res.Recipients = append(res.Recipients, cid)
		}
		if len(res.Recipients) == 0 {
			return nil
		}

		sent, err := t.store.UpdateCampaign(id, func(c *models.Campaign) error {
			for _, cid := range res.Recipients {
				c.MarkSent(cid)
			}
			return nil
		})
		if err != nil {
			return err
		}
		res.RecipientsAdded = len(res.Recipients)
		t.dirty = true
		t.publish(events.CampaignSent{Campaign: *sent, Recipients: res.Recipients, Contacts: reached})
		return nil
	})
	if err != nil {
		return SendResult{CampaignID: id, Recipients: []int{}}, err
	}
	return res, nil
}
