package gameplay

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/ids"
	"github.com/myrjola/guesswho/internal/models"
)

var ErrInvalidProfile = fmt.Errorf("invalid profile: %w", errors.ErrValidation)

// WorkspacePreferences are the accepted workspace preferences. The empty preference means "not telling".
var WorkspacePreferences = []string{"remote", "office", "hybrid"}

const (
	maxDisplayNameLength = 80
	maxProfessionLength  = 80
	maxBioLength         = 500
	maxTags              = 20
	maxTagLength         = 40
)

// ProfileInput is the editable part of a member profile as submitted by its owner. Skills and interests are comma
// separated.
type ProfileInput struct {
	DisplayName         string
	Profession          string
	Bio                 string
	Skills              string
	Interests           string
	WorkspacePreference string
	GameParticipation   bool
}

// ParseTags splits a comma separated list into lower case tags without duplicates.
func ParseTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		tag = strings.ToLower(strings.Join(strings.Fields(tag), " "))
		if tag != "" && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

func invalidProfile(field string) error {
	return errors.Wrap(ErrInvalidProfile, "validate profile", slog.String("field", field))
}

func (in ProfileInput) validate() (models.Member, error) {
	m := models.Member{
		DisplayName:         strings.TrimSpace(in.DisplayName),
		Profession:          strings.TrimSpace(in.Profession),
		Bio:                 strings.TrimSpace(in.Bio),
		Skills:              ParseTags(in.Skills),
		Interests:           ParseTags(in.Interests),
		WorkspacePreference: strings.TrimSpace(in.WorkspacePreference),
		GameParticipation:   in.GameParticipation,
	}
	switch {
	case m.DisplayName == "" || utf8.RuneCountInString(m.DisplayName) > maxDisplayNameLength:
		return models.Member{}, invalidProfile("displayName")
	case utf8.RuneCountInString(m.Profession) > maxProfessionLength:
		return models.Member{}, invalidProfile("profession")
	case utf8.RuneCountInString(m.Bio) > maxBioLength:
		return models.Member{}, invalidProfile("bio")
	case m.WorkspacePreference != "" && !slices.Contains(WorkspacePreferences, m.WorkspacePreference):
		return models.Member{}, invalidProfile("workspacePreference")
	}
	for field, tags := range map[string][]string{"skills": m.Skills, "interests": m.Interests} {
		if len(tags) > maxTags {
			return models.Member{}, invalidProfile(field)
		}
		for _, tag := range tags {
			if utf8.RuneCountInString(tag) > maxTagLength {
				return models.Member{}, invalidProfile(field)
			}
		}
	}
	return m, nil
}

// Profile returns the member profile of the user. A user who hasn't saved a profile yet gets a not found error.
func (s *Service) Profile(ctx context.Context, userID []byte) (models.Member, error) {
	m, err := s.members.GetByUserID(ctx, userID)
	if err != nil {
		return models.Member{}, errors.Wrap(err, "profile")
	}
	return m, nil
}

// Professions lists the professions the question catalog asks about, in catalog order.
func (s *Service) Professions(ctx context.Context) ([]string, error) {
	categories, err := s.questions.ListCatalog(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list catalog")
	}
	var professions []string
	for _, category := range categories {
		for _, q := range category.Questions {
			if q.AttributePath == "profession" && q.AttributeValue != nil &&
				!slices.Contains(professions, *q.AttributeValue) {
				professions = append(professions, *q.AttributeValue)
			}
		}
	}
	return professions, nil
}

// SaveProfile creates or updates the member profile of the user.
//
// A profession matching a catalog profession apart from letter case is stored in the catalog spelling so that the
// profession questions can match it.
func (s *Service) SaveProfile(ctx context.Context, userID []byte, in ProfileInput) (models.Member, error) {
	m, err := in.validate()
	if err != nil {
		return models.Member{}, err
	}
	if m.Profession != "" {
		var professions []string
		if professions, err = s.Professions(ctx); err != nil {
			return models.Member{}, err
		}
		if i := slices.IndexFunc(professions, func(p string) bool {
			return strings.EqualFold(p, m.Profession)
		}); i >= 0 {
			m.Profession = professions[i]
		}
	}

	existing, err := s.members.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		now := s.now()
		m.ID = ids.NewAt(now)
		m.UserID = userID
		m.Status = models.PresenceOnline
		m.LastActiveAt = now
		m.CreatedAt = now
		if err = s.members.Create(ctx, m); err != nil {
			return models.Member{}, errors.Wrap(err, "create profile")
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "member joined", slog.String("member_id", m.ID))
		return m, nil
	case err != nil:
		return models.Member{}, errors.Wrap(err, "load profile")
	}

	m.ID = existing.ID
	m.UserID = existing.UserID
	m.Status = existing.Status
	m.LastActiveAt = existing.LastActiveAt
	m.CreatedAt = existing.CreatedAt
	if err = s.members.Update(ctx, m); err != nil {
		return models.Member{}, errors.Wrap(err, "update profile")
	}
	return m, nil
}
