// README: Firebase ID token verification for agency staff; the "role" custom claim gates agency routes.
package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Roles carried in the "role" custom claim of staff accounts. Customers hold
// no role and only reach the public routes.
const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// AgencyRoles may quote unpublished packages and manage offers.
var AgencyRoles = []string{RoleAgent, RoleAdmin}

type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// Role returns the normalized "role" claim, or "" when it is absent or not a string.
func (t *FirebaseToken) Role() string {
	role, _ := t.Claims["role"].(string)
	return strings.ToLower(strings.TrimSpace(role))
}

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier builds the staff token verifier. credentialsFile is a
// service-account JSON path; empty falls back to application-default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (TokenVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase: project id required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify staff token: %w", err)
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}
