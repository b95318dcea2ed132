package bitable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"bitable-auth/internal/model"
	"bitable-auth/internal/util"
	"bitable-auth/pkg/apierror"
)

// StatusActive is the status assigned to every newly created user record.
const StatusActive = "active"

// envelope is the common success/error shape of every store response.
type envelope interface {
	status() int
	message() string
}

type apiStatus struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (s *apiStatus) status() int     { return s.Code }
func (s *apiStatus) message() string { return s.Msg }

type record struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

type listResponse struct {
	apiStatus
	Data struct {
		Items []record `json:"items"`
	} `json:"data"`
}

type recordResponse struct {
	apiStatus
	Data struct {
		Record record `json:"record"`
	} `json:"data"`
}

// Field describes one column of the user table, as reported by the store's
// schema introspection endpoint.
type Field struct {
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name"`
	Type      int    `json:"type"`
}

type fieldsResponse struct {
	apiStatus
	Data struct {
		Items []Field `json:"items"`
	} `json:"data"`
}

// FindUserByUsername returns the first record whose username matches exactly,
// or nil when there is none.
func (c *Client) FindUserByUsername(ctx context.Context, username string) (*model.UserRecord, error) {
	return c.findUserBy(ctx, "username", username)
}

// FindUserByEmail returns the first record whose email matches exactly, or nil
// when there is none.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*model.UserRecord, error) {
	return c.findUserBy(ctx, "email", email)
}

func (c *Client) findUserBy(ctx context.Context, field string, value string) (*model.UserRecord, error) {
	query := url.Values{}
	query.Set("filter", fmt.Sprintf(`CurrentValue.[%s] = "%s"`, field, value))

	var out listResponse
	if err := c.do(ctx, http.MethodGet, c.recordsURL()+"?"+query.Encode(), nil, &out); err != nil {
		return nil, queryError("user lookup failed", err)
	}

	if len(out.Data.Items) == 0 {
		return nil, nil
	}

	return decodeUserRecord(out.Data.Items[0]), nil
}

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Phone        string
}

// CreateUser submits a new row with status "active" and the creation time set
// to now. The phone number is stored digits-only, or absent when empty or
// non-numeric. Uniqueness of username and email is the caller's concern.
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*model.UserRecord, error) {
	fields := map[string]any{
		"username":      params.Username,
		"email":         params.Email,
		"password_hash": params.PasswordHash,
		"phone":         nil,
		"status":        StatusActive,
		"created_time":  strconv.FormatInt(c.now().UnixMilli(), 10),
	}
	if phone, ok := util.NormalizePhone(params.Phone); ok {
		fields["phone"] = phone
	}

	var out recordResponse
	payload := map[string]any{"fields": fields}
	if err := c.do(ctx, http.MethodPost, c.recordsURL(), payload, &out); err != nil {
		return nil, writeError("user creation failed", err)
	}

	return decodeUserRecord(out.Data.Record), nil
}

// UpdateLastLogin stamps the record's last_login with the current time. The
// caller may ignore a failure; a stale timestamp never blocks a login.
func (c *Client) UpdateLastLogin(ctx context.Context, recordID string) error {
	payload := map[string]any{
		"fields": map[string]any{"last_login": c.now().UnixMilli()},
	}

	var out recordResponse
	if err := c.do(ctx, http.MethodPut, c.recordURL(recordID), payload, &out); err != nil {
		return writeError("last-login update failed", err)
	}

	return nil
}

// UpdateUser applies a partial update to the record's fields.
func (c *Client) UpdateUser(ctx context.Context, recordID string, fields map[string]any) (*model.UserRecord, error) {
	payload := map[string]any{"fields": fields}

	var out recordResponse
	if err := c.do(ctx, http.MethodPut, c.recordURL(recordID), payload, &out); err != nil {
		return nil, writeError("user update failed", err)
	}

	return decodeUserRecord(out.Data.Record), nil
}

// ListFields returns the column schema of the user table.
func (c *Client) ListFields(ctx context.Context) ([]Field, error) {
	rawURL := fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/fields", c.baseURL, c.appToken, c.tableID)

	var out fieldsResponse
	if err := c.do(ctx, http.MethodGet, rawURL, nil, &out); err != nil {
		return nil, queryError("field introspection failed", err)
	}

	return out.Data.Items, nil
}

// queryError and writeError classify an operation failure, letting an already
// classified error (the UPSTREAM_AUTH from the token exchange) pass through.
func queryError(message string, err error) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	return apierror.UpstreamQuery(message, err.Error())
}

func writeError(message string, err error) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	return apierror.UpstreamWrite(message, err.Error())
}

// decodeUserRecord validates the duck-typed fields object at the boundary.
// Epoch fields arrive as either decimal strings or numbers depending on the
// column type; anything unreadable in an optional field is dropped.
func decodeUserRecord(rec record) *model.UserRecord {
	user := &model.UserRecord{}
	user.RecordID = rec.RecordID
	user.Username = stringField(rec.Fields, "username")
	user.Email = stringField(rec.Fields, "email")
	user.Status = stringField(rec.Fields, "status")
	user.PasswordHash = stringField(rec.Fields, "password_hash")
	user.CreatedTime = numberField(rec.Fields, "created_time")
	user.LastLogin = numberField(rec.Fields, "last_login")
	user.Phone = numberField(rec.Fields, "phone")

	return user
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}

func numberField(fields map[string]any, key string) int64 {
	switch value := fields[key].(type) {
	case float64:
		return int64(value)
	case string:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
