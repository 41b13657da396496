// Package authz mirrors per-event team roles into OpenFGA and answers
// relation checks against them.
package authz

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"jogosescolares/internal/config"

	"github.com/google/uuid"
	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

//go:embed model.json
var authorizationModel []byte

const objectTypeEvent = "event"

type Relation string

const (
	RelationOwner         Relation = "owner"
	RelationAssistant     Relation = "assistant"
	RelationObserver      Relation = "observer"
	RelationCanManageTeam Relation = "can_manage_team"
	RelationCanEdit       Relation = "can_edit"
	RelationCanView       Relation = "can_view"
)

// Client wraps the OpenFGA SDK. When disabled every write is skipped and
// every check is allowed.
type Client struct {
	fga    *client.OpenFgaClient
	config config.OpenFGAConfig
	logger *slog.Logger
}

func NewClient(logger *slog.Logger, cfg config.OpenFGAConfig) (*Client, error) {
	if !cfg.Enabled {
		logger.Info("OpenFGA is disabled")
		return &Client{config: cfg, logger: logger}, nil
	}

	clientConfig := &client.ClientConfiguration{
		ApiUrl:               cfg.APIURL,
		StoreId:              cfg.StoreID,
		AuthorizationModelId: cfg.AuthorizationModelID,
	}
	if cfg.APIToken != "" {
		clientConfig.Credentials = &credentials.Credentials{
			Method: credentials.CredentialsMethodApiToken,
			Config: &credentials.Config{
				ApiToken: cfg.APIToken,
			},
		}
	}

	fgaClient, err := client.NewSdkClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenFGA client: %w", err)
	}

	logger.Info("OpenFGA client initialized successfully",
		"store_id", cfg.StoreID, "model_id", cfg.AuthorizationModelID)

	return &Client{
		fga:    fgaClient,
		config: cfg,
		logger: logger,
	}, nil
}

func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.fga != nil
}

// Check reports whether userID holds relation on the event.
func (c *Client) Check(ctx context.Context, userID uuid.UUID, relation Relation, eventID uuid.UUID) (bool, error) {
	if !c.IsEnabled() {
		return true, nil
	}

	body := client.ClientCheckRequest{
		User:     userRef(userID),
		Relation: string(relation),
		Object:   eventRef(eventID),
	}

	data, err := c.fga.Check(ctx).Body(body).Execute()
	if err != nil {
		c.logger.ErrorContext(ctx, "OpenFGA check failed",
			"user", body.User, "relation", relation, "object", body.Object, "error", err)
		return false, fmt.Errorf("failed to check %s on %s: %w", relation, body.Object, err)
	}

	allowed := data.GetAllowed()
	c.logger.DebugContext(ctx, "OpenFGA check completed",
		"user", body.User, "relation", relation, "object", body.Object, "allowed", allowed)

	return allowed, nil
}

// SetRole replaces the user's role tuple on the event. previous may be empty.
func (c *Client) SetRole(ctx context.Context, userID, eventID uuid.UUID, previous, role Relation) error {
	if !c.IsEnabled() || previous == role {
		return nil
	}

	body := client.ClientWriteRequest{
		Writes: []client.ClientTupleKey{
			{User: userRef(userID), Relation: string(role), Object: eventRef(eventID)},
		},
	}
	if previous != "" {
		body.Deletes = []client.ClientTupleKeyWithoutCondition{
			{User: userRef(userID), Relation: string(previous), Object: eventRef(eventID)},
		}
	}
	if _, err := c.fga.Write(ctx).Body(body).Execute(); err != nil {
		c.logger.ErrorContext(ctx, "OpenFGA write failed",
			"user", userRef(userID), "relation", role, "object", eventRef(eventID), "error", err)
		return fmt.Errorf("failed to write %s tuple: %w", role, err)
	}

	c.logger.DebugContext(ctx, "OpenFGA tuple written",
		"user", userRef(userID), "relation", role, "object", eventRef(eventID))
	return nil
}

// DeleteRole removes the user's role tuple from the event.
func (c *Client) DeleteRole(ctx context.Context, userID, eventID uuid.UUID, role Relation) error {
	if !c.IsEnabled() {
		return nil
	}

	body := client.ClientWriteRequest{
		Deletes: []client.ClientTupleKeyWithoutCondition{
			{User: userRef(userID), Relation: string(role), Object: eventRef(eventID)},
		},
	}

	if _, err := c.fga.Write(ctx).Body(body).Execute(); err != nil {
		c.logger.ErrorContext(ctx, "OpenFGA delete failed",
			"user", userRef(userID), "relation", role, "object", eventRef(eventID), "error", err)
		return fmt.Errorf("failed to delete %s tuple: %w", role, err)
	}

	c.logger.DebugContext(ctx, "OpenFGA tuple deleted",
		"user", userRef(userID), "relation", role, "object", eventRef(eventID))
	return nil
}

// CreateStore provisions a new store and returns its id.
func (c *Client) CreateStore(ctx context.Context, name string) (string, error) {
	if !c.IsEnabled() {
		return "", fmt.Errorf("openfga is disabled")
	}

	resp, err := c.fga.CreateStore(ctx).Body(client.ClientCreateStoreRequest{Name: name}).Execute()
	if err != nil {
		return "", fmt.Errorf("failed to create store: %w", err)
	}
	return resp.GetId(), nil
}

// WriteAuthorizationModel uploads the embedded event role model to the
// configured store and returns the new model id.
func (c *Client) WriteAuthorizationModel(ctx context.Context) (string, error) {
	if !c.IsEnabled() {
		return "", fmt.Errorf("openfga is disabled")
	}

	body, err := Model()
	if err != nil {
		return "", err
	}

	resp, err := c.fga.WriteAuthorizationModel(ctx).Body(body).Execute()
	if err != nil {
		return "", fmt.Errorf("failed to write authorization model: %w", err)
	}
	return resp.GetAuthorizationModelId(), nil
}

// Model returns the embedded authorization model.
func Model() (client.ClientWriteAuthorizationModelRequest, error) {
	var body client.ClientWriteAuthorizationModelRequest
	if err := json.Unmarshal(authorizationModel, &body); err != nil {
		return body, fmt.Errorf("failed to parse authorization model: %w", err)
	}
	return body, nil
}

func userRef(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

func eventRef(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", objectTypeEvent, id)
}
