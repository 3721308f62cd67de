package opencast

import (
	"context"
	"strings"
)

const (
	RoleAnonymous = "ROLE_ANONYMOUS"
	roleLTIPrefix = "ROLE_LTI"
)

type User struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Me is the payload of info/me.json.
type Me struct {
	User     User     `json:"user"`
	UserRole string   `json:"userRole"`
	Roles    []string `json:"roles"`
}

func (me *Me) IsAnonymous() bool {
	for _, role := range me.Roles {
		if role != RoleAnonymous {
			return false
		}
	}
	return true
}

func (me *Me) HasLTIRole() bool {
	for _, role := range me.Roles {
		if strings.HasPrefix(role, roleLTIPrefix) {
			return true
		}
	}
	return false
}

// LTI is the payload of the lti endpoint.
type LTI map[string]any

func (l LTI) ContextID() string {
	v, _ := l["context_id"].(string)
	return v
}

func (c *Client) fetchMe(ctx context.Context) ([]byte, *Me, error) {
	var me Me
	raw, err := c.getJSON(ctx, "identity probe", "info/me.json", &me)
	if err != nil {
		return nil, nil, err
	}
	return raw, &me, nil
}

func (c *Client) fetchLTI(ctx context.Context) ([]byte, LTI, error) {
	var lti LTI
	raw, err := c.getJSON(ctx, "LTI probe", "lti", &lti)
	if err != nil {
		return nil, nil, err
	}
	return raw, lti, nil
}
