package operators

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRepo struct {
	ops       map[string]*Operator
	lastTouch string
	err       error
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*Operator, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ops[email], nil
}

func (f *fakeRepo) Touch(ctx context.Context, email, sub, name string) (*Operator, error) {
	f.lastTouch = email
	if f.err != nil {
		return nil, f.err
	}
	op, ok := f.ops[email]
	if !ok {
		return nil, nil
	}
	ret := *op
	ret.Sub = sub
	ret.LastSeenAt = time.Now().UTC()
	return &ret, nil
}

func TestAuthorizeClaimsStaticList(t *testing.T) {
	svc := NewService([]string{" Ops@TribeHub.org ", ""}, nil)
	op, err := svc.AuthorizeClaims(context.Background(), map[string]interface{}{
		"sub":   "sub-1",
		"email": "ops@tribehub.org",
		"name":  "Ops",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Email != "ops@tribehub.org" || op.Sub != "sub-1" {
		t.Fatalf("unexpected operator: %+v", op)
	}

	_, err = svc.AuthorizeClaims(context.Background(), map[string]interface{}{"email": "someone@else.org"})
	if !errors.Is(err, ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}
}

func TestAuthorizeClaimsRepository(t *testing.T) {
	repo := &fakeRepo{ops: map[string]*Operator{"admin@tribehub.org": {ID: "a1", Email: "admin@tribehub.org"}}}
	svc := NewService(nil, repo)

	op, err := svc.AuthorizeClaims(context.Background(), map[string]interface{}{"sub": "s", "email": "Admin@TribeHub.org"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.ID != "a1" || op.LastSeenAt.IsZero() {
		t.Fatalf("expected touched repository record, got %+v", op)
	}
	if repo.lastTouch != "admin@tribehub.org" {
		t.Fatalf("expected lower-cased lookup, got %q", repo.lastTouch)
	}

	if _, err := svc.AuthorizeClaims(context.Background(), map[string]interface{}{"email": "x@y.z"}); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}
	// claims without an e-mail never reach the repository
	repo.lastTouch = ""
	if _, err := svc.AuthorizeClaims(context.Background(), map[string]interface{}{"sub": "only-sub"}); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}
	if repo.lastTouch != "" {
		t.Fatalf("repository should not be consulted without an e-mail")
	}
}

func TestAuthorizeClaimsLowerCasesStoredAddress(t *testing.T) {
	repo := &fakeRepo{ops: map[string]*Operator{"admin@tribe.org": {ID: "a2", Email: "Admin@Tribe.org"}}}
	op, err := NewService(nil, repo).AuthorizeClaims(context.Background(), map[string]interface{}{"email": "ADMIN@tribe.org"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Email != "admin@tribe.org" {
		t.Fatalf("expected lower-cased actor, got %q", op.Email)
	}
}

func TestAuthorizeClaimsRepositoryError(t *testing.T) {
	svc := NewService(nil, &fakeRepo{err: errors.New("mongo down")})
	_, err := svc.AuthorizeClaims(context.Background(), map[string]interface{}{"email": "a@b.c"})
	if err == nil || errors.Is(err, ErrNotOperator) {
		t.Fatalf("expected repository error, got %v", err)
	}
}

func TestIsAuthorized(t *testing.T) {
	svc := NewService([]string{"ops@tribehub.org"}, &fakeRepo{ops: map[string]*Operator{"db@tribehub.org": {Email: "db@tribehub.org"}}})
	for email, want := range map[string]bool{
		"OPS@tribehub.org": true,
		"db@tribehub.org":  true,
		"nobody@x.org":     false,
		"":                 false,
	} {
		got, err := svc.IsAuthorized(context.Background(), email)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", email, err)
		}
		if got != want {
			t.Fatalf("IsAuthorized(%q) = %v, want %v", email, got, want)
		}
	}
}
