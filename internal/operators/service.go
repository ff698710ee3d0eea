package operators

import (
	"context"
	"errors"
	"strings"

	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

var ErrNotOperator = errors.New("not an authorized operator")

// Service decides whether a verified identity may mutate content.
type Service struct {
	static map[string]bool
	repo   OperatorRepository
}

// NewService builds the allowlist from static e-mails and an optional repository.
func NewService(emails []string, r OperatorRepository) *Service {
	static := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			static[e] = true
		}
	}
	return &Service{static: static, repo: r}
}

// AuthorizeClaims resolves the operator behind a verified claims map.
// The e-mail claim is the actor id used in the audit trail.
func (s *Service) AuthorizeClaims(ctx context.Context, claims map[string]interface{}) (*Operator, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		email, _ = claims["preferred_username"].(string)
	}
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrNotOperator
	}

	if s.static[email] {
		return &Operator{Email: email, Name: name, Sub: sub}, nil
	}
	if s.repo == nil {
		return nil, ErrNotOperator
	}
	op, err := s.repo.Touch(ctx, email, sub, name)
	if err != nil {
		return nil, err
	}
	if op == nil {
		logger.Debugf("sign-in by %s rejected: not in allowlist", email)
		return nil, ErrNotOperator
	}
	// the audit trail keys actors by the lower-cased address
	op.Email = email
	return op, nil
}

// IsAuthorized reports whether email belongs to an operator.
func (s *Service) IsAuthorized(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if s.static[email] {
		return true, nil
	}
	if s.repo == nil || email == "" {
		return false, nil
	}
	op, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return op != nil, nil
}
