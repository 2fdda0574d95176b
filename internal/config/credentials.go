package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMissingCredentials is returned when no usable group ID and API key exist.
var ErrMissingCredentials = errors.New("Zotero credentials missing")

// Environment variables consulted when the credentials file lacks a value.
const (
	GroupIDEnv = "ZOTERO_GROUP_ID"
	APIKeyEnv  = "ZOTERO_API_KEY"
)

// FlexibleString can unmarshal from either string or number JSON values.
// Group IDs are written both ways by hand-edited credential files.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexibleString(strconv.Itoa(i))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// Credentials identify the Zotero group library and authorize access to it.
type Credentials struct {
	GroupID string `json:"groupId"`
	APIKey  string `json:"apiKey"`
}

// credentialsFile is the on-disk shape. sylvarumGroupID is the key used by
// the first version of the sync tooling.
type credentialsFile struct {
	GroupID       FlexibleString `json:"groupId"`
	LegacyGroupID FlexibleString `json:"sylvarumGroupID"`
	APIKey        string         `json:"apiKey"`
}

// ParseCredentials decodes a credentials file.
func ParseCredentials(data []byte) (*Credentials, error) {
	var raw credentialsFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	creds := &Credentials{
		GroupID: raw.GroupID.String(),
		APIKey:  strings.TrimSpace(raw.APIKey),
	}
	if creds.GroupID == "" {
		creds.GroupID = raw.LegacyGroupID.String()
	}
	return creds, nil
}

// LoadCredentials reads memory/zotero.json under root. Values missing from the
// file (or the whole file) are taken from ZOTERO_GROUP_ID and ZOTERO_API_KEY.
func LoadCredentials(root string) (*Credentials, error) {
	path := CredentialsPath(root)
	creds := &Credentials{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		creds, err = ParseCredentials(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	if creds.GroupID == "" {
		creds.GroupID = strings.TrimSpace(os.Getenv(GroupIDEnv))
	}
	if creds.APIKey == "" {
		creds.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}

	var missing []string
	if creds.GroupID == "" {
		missing = append(missing, "groupId")
	}
	if creds.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s not set in %s or %s/%s",
			ErrMissingCredentials, strings.Join(missing, " and "), path, GroupIDEnv, APIKeyEnv)
	}

	return creds, nil
}
