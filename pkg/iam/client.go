// Package iam wraps the external identity-and-access-management HTTP API.
// Every call forwards the caller's bearer credential; lookups degrade to
// empty results on remote failure so a broken IAM never takes the primary
// flow down with it.
package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/config"
	"github.com/staffdir/staffdir/pkg/model"
)

// remote error code returned when the phone number is already taken
const codeDuplicatePhone = 1019

// maxPhoneRetries bounds the regenerate-and-retry loop on duplicate phone
// numbers; the upstream system this replaces retried forever.
const maxPhoneRetries = 5

const defaultPassword = "12345678"

type Client struct {
	cfg    *config.IAMConfig
	http   *http.Client
	logger *zap.Logger
}

type UserProfile struct {
	FullName    string
	Email       string
	PhoneNumber string
}

func NewClient(cfg *config.IAMConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type userItem struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Revoked bool   `json:"revoked"`
}

type usersResponse struct {
	Items []userItem `json:"items"`
}

type createUserResponse struct {
	Item  *userItem `json:"item"`
	Error *struct {
		Code int `json:"code"`
	} `json:"error"`
}

type rolesResponse struct {
	Items []struct {
		ID int `json:"id"`
	} `json:"items"`
}

// FindUserIDByEmail returns the id of the non-revoked IAM user registered
// under email, or "" when there is none (or the lookup failed).
func (c *Client) FindUserIDByEmail(ctx context.Context, token, email string) string {
	endpoint := fmt.Sprintf("%s/users?email=%s", c.cfg.BaseURL, url.QueryEscape(email))
	var resp usersResponse
	if err := c.call(ctx, http.MethodGet, endpoint, token, nil, &resp); err != nil {
		c.logger.Warn("iam user lookup failed", zap.String("email", email), zap.Error(err))
		return ""
	}
	for _, item := range resp.Items {
		if !item.Revoked {
			return item.ID
		}
	}
	return ""
}

// CreateUser registers profile with the identity provider and returns the new
// user id. A duplicate-phone rejection regenerates a random phone number and
// retries, at most maxPhoneRetries times.
func (c *Client) CreateUser(ctx context.Context, token string, profile UserProfile) (string, error) {
	endpoint := c.cfg.BaseURL + "/users"
	body := map[string]string{
		"name":         profile.FullName,
		"password":     defaultPassword,
		"email":        profile.Email,
		"phone_number": profile.PhoneNumber,
		"tenant_id":    c.cfg.TenantID,
	}

	for attempt := 0; ; attempt++ {
		var resp createUserResponse
		err := c.call(ctx, http.MethodPost, endpoint, token, body, &resp)
		if err == nil && resp.Item != nil {
			return resp.Item.ID, nil
		}
		if resp.Error == nil || resp.Error.Code != codeDuplicatePhone {
			if err == nil {
				err = fmt.Errorf("empty response item")
			}
			return "", fmt.Errorf("iam create user %s: %w", profile.Email, err)
		}
		if attempt >= maxPhoneRetries {
			return "", fmt.Errorf("iam create user %s: phone still duplicated after %d retries", profile.Email, maxPhoneRetries)
		}
		body["phone_number"] = randomPhoneNumber()
	}
}

// GetRoles lists the role ids currently held by userID.
func (c *Client) GetRoles(ctx context.Context, token, userID string) []int {
	endpoint := fmt.Sprintf("%s/users/%s/roles", c.cfg.BaseURL, userID)
	var resp rolesResponse
	if err := c.call(ctx, http.MethodGet, endpoint, token, nil, &resp); err != nil {
		c.logger.Warn("iam role lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	ids := make([]int, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// SetRoles replaces userID's sales-portal roles with roleIDs. The remote API
// has no atomic replace, so this revokes every known sales role first and
// grants the requested set afterwards.
func (c *Client) SetRoles(ctx context.Context, token, userID string, roleIDs []int) error {
	if err := c.crudRoles(ctx, http.MethodDelete, token, userID, c.AllSalesRoleIDs()); err != nil {
		return err
	}
	return c.crudRoles(ctx, http.MethodPost, token, userID, roleIDs)
}

func (c *Client) crudRoles(ctx context.Context, method, token, userID string, roleIDs []int) error {
	endpoint := fmt.Sprintf("%s/users/%s/roles", c.cfg.BaseURL, userID)
	body := map[string]any{
		"user_id":  userID,
		"role_ids": roleIDs,
	}
	return c.call(ctx, method, endpoint, token, body, nil)
}

// ValidateCanCreateUser resolves the caller behind token via the userinfo
// endpoint and checks it against the trust allow-list. Unlike the lookups
// above this fails loudly: staff creation must not proceed for an untrusted
// caller.
func (c *Client) ValidateCanCreateUser(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperr.ErrNotAllowed
	}
	var resp struct {
		Email string `json:"email"`
	}
	if err := c.call(ctx, http.MethodGet, c.cfg.UserinfoURL, token, nil, &resp); err != nil {
		return "", fmt.Errorf("iam userinfo: %w", err)
	}
	for _, trusted := range c.cfg.TrustedEmails {
		if resp.Email == trusted {
			return resp.Email, nil
		}
	}
	return "", apperr.ErrNotAllowed
}

// RoleIDFor maps a sales role-title name to its identity-provider role id;
// 0 means the name is not a sales role.
func (c *Client) RoleIDFor(roleName string) int {
	switch roleName {
	case model.RoleSale:
		return c.cfg.SaleRoleID
	case model.RoleTeamLead:
		return c.cfg.TeamLeadRoleID
	case model.RoleSaleAdmin:
		return c.cfg.SaleAdminRoleID
	case model.RoleSaleManager:
		return c.cfg.SaleManagerRoleID
	case model.RoleAdministrator:
		return c.cfg.AdministratorRoleID
	}
	return 0
}

func (c *Client) AllSalesRoleIDs() []int {
	return []int{
		c.cfg.SaleRoleID,
		c.cfg.TeamLeadRoleID,
		c.cfg.SaleAdminRoleID,
		c.cfg.SaleManagerRoleID,
		c.cfg.AdministratorRoleID,
	}
}

func (c *Client) call(ctx context.Context, method, endpoint, token string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, endpoint, err)
		}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, endpoint, resp.StatusCode)
	}
	return nil
}

func randomPhoneNumber() string {
	digits := make([]byte, 9)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return "0" + string(digits)
}
