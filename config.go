package studio

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/secret"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Opencast  ServerSettings    `json:"opencast,omitempty"  yaml:"opencast,omitempty"`
	Upload    UploadSettings    `json:"upload,omitempty"    yaml:"upload,omitempty"`
	Recording RecordingSettings `json:"recording,omitempty" yaml:"recording,omitempty"`
}

// ServerSettings describes how to reach and authenticate against Opencast.
//
// If LoginProvided is set the caller is assumed to be authenticated already
// (cookies of an existing session), and Username/Password are ignored.
type ServerSettings struct {
	ServerURL     string
	LoginProvided bool
	Username      string
	Password      *secret.Any[string]
}

func NewPassword(password string) *secret.Any[string] {
	if password == "" {
		return nil
	}
	s := secret.New(password)
	return &s
}

func (s ServerSettings) PasswordValue() string {
	if s.Password == nil {
		return ""
	}
	return s.Password.Get()
}

type serverSettingsSerializable struct {
	ServerURL     string `yaml:"server_url,omitempty"`
	LoginProvided bool   `yaml:"login_provided,omitempty"`
	Username      string `yaml:"login_username,omitempty"`
	Password      string `yaml:"login_password,omitempty"`
}

func (s *ServerSettings) UnmarshalYAML(unmarshal func(any) error) error {
	var in serverSettingsSerializable
	if err := unmarshal(&in); err != nil {
		return fmt.Errorf("unable to unmarshal the server settings: %w", err)
	}
	*s = ServerSettings{
		ServerURL:     in.ServerURL,
		LoginProvided: in.LoginProvided,
		Username:      in.Username,
		Password:      NewPassword(in.Password),
	}
	return nil
}

func (s ServerSettings) MarshalYAML() (any, error) {
	return serverSettingsSerializable{
		ServerURL:     s.ServerURL,
		LoginProvided: s.LoginProvided,
		Username:      s.Username,
		Password:      s.PasswordValue(),
	}, nil
}

func (s ServerSettings) HasCredentials() bool {
	return s.Username != "" || s.PasswordValue() != ""
}

type UploadSettings struct {
	WorkflowID     string     `json:"workflow_id,omitempty"     yaml:"workflow_id,omitempty"`
	SeriesID       string     `json:"series_id,omitempty"       yaml:"series_id,omitempty"`
	DCCTemplate    string     `json:"dcc,omitempty"             yaml:"dcc,omitempty"`
	ACL            ACLSetting `json:"acl,omitempty"             yaml:"acl,omitempty"`
	TitleField     FieldMode  `json:"title_field,omitempty"     yaml:"title_field,omitempty"`
	PresenterField FieldMode  `json:"presenter_field,omitempty" yaml:"presenter_field,omitempty"`
}

// ACLSetting is either a boolean (whether to attach the default ACL) or a
// custom ACL template. The zero value attaches the default ACL.
type ACLSetting struct {
	Disabled bool
	Template string
}

func (s ACLSetting) Enabled() bool {
	return !s.Disabled
}

func (s *ACLSetting) UnmarshalYAML(unmarshal func(any) error) error {
	var enabled bool
	if err := unmarshal(&enabled); err == nil {
		*s = ACLSetting{Disabled: !enabled}
		return nil
	}

	var template string
	if err := unmarshal(&template); err != nil {
		return fmt.Errorf("'acl' must be either a boolean or a template string: %w", err)
	}
	*s = ACLSetting{Template: template}
	return nil
}

func (s ACLSetting) MarshalYAML() (any, error) {
	switch {
	case s.Disabled:
		return false, nil
	case s.Template != "":
		return s.Template, nil
	}
	return true, nil
}

func (s ACLSetting) IsZero() bool {
	return s == ACLSetting{}
}

type FieldMode string

const (
	FieldModeUndefined = FieldMode("")
	FieldModeRequired  = FieldMode("required")
	FieldModeOptional  = FieldMode("optional")
	FieldModeHidden    = FieldMode("hidden")
)

func (m FieldMode) Effective() FieldMode {
	if m == FieldModeUndefined {
		return FieldModeOptional
	}
	return m
}

func (m FieldMode) Validate() error {
	switch m {
	case FieldModeUndefined, FieldModeRequired, FieldModeOptional, FieldModeHidden:
		return nil
	}
	return fmt.Errorf("unknown field mode '%s'", string(m))
}

type RecordingSettings struct {
	// MimeTypes is the preference list of encodings; the first one supported
	// by the platform is used.
	MimeTypes []string      `json:"mime_types,omitempty" yaml:"mime_types,omitempty"`
	Timeslice time.Duration `json:"timeslice,omitempty"  yaml:"timeslice,omitempty"`
}

func ParseSettings(r io.Reader) (*Settings, error) {
	var cfg Settings
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("unable to parse the settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &cfg, nil
}

func (cfg Settings) Validate() error {
	var result *multierror.Error

	if cfg.Opencast.ServerURL != "" {
		u, err := url.Parse(cfg.Opencast.ServerURL)
		switch {
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("unable to parse the server URL '%s': %w", cfg.Opencast.ServerURL, err))
		case u.Scheme != "http" && u.Scheme != "https":
			result = multierror.Append(result, fmt.Errorf("the server URL '%s' must use http or https", cfg.Opencast.ServerURL))
		}
	}
	if cfg.Opencast.LoginProvided && cfg.Opencast.HasCredentials() {
		result = multierror.Append(result, fmt.Errorf("'login_provided' cannot be combined with a username/password"))
	}
	if cfg.Opencast.Username == "" && cfg.Opencast.PasswordValue() != "" {
		result = multierror.Append(result, fmt.Errorf("a password is configured without a username"))
	}
	if err := cfg.Upload.TitleField.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("'title_field': %w", err))
	}
	if err := cfg.Upload.PresenterField.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("'presenter_field': %w", err))
	}
	for idx, mimeType := range cfg.Recording.MimeTypes {
		if !strings.Contains(mimeType, "/") {
			result = multierror.Append(result, fmt.Errorf("mime type #%d '%s' is not in the form 'type/subtype'", idx, mimeType))
		}
	}
	if cfg.Recording.Timeslice < 0 {
		result = multierror.Append(result, fmt.Errorf("the recording timeslice cannot be negative"))
	}

	return result.ErrorOrNil()
}
