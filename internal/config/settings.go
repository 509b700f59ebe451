package config

import (
	"fmt"
	"strings"
)

// ExtensionName namespaces every extension setting in the settings file.
const ExtensionName = "docs-build"

// Environment selects the backend the extension talks to.
type Environment string

const (
	EnvironmentProd Environment = "PROD"
	EnvironmentPPE  Environment = "PPE"
)

// RepoType classifies the docs repository open in the workspace.
type RepoType string

const (
	RepoTypeGitHub      RepoType = "GitHub"
	RepoTypeAzureDevOps RepoType = "Azure DevOps"
)

type UserType string

const (
	UserTypeUnknown           UserType = "Unknown"
	UserTypeMicrosoftEmployee UserType = "Microsoft employee"
	UserTypePublicContributor UserType = "Public contributor"
)

// Defaults used when a key is absent from the settings file.
const (
	DefaultEnvironment        = EnvironmentProd
	DefaultDebugMode          = false
	DefaultUserType           = UserTypeUnknown
	DefaultRealTimeValidation = false
	FallbackRepoType          = RepoTypeGitHub
)

// Key identifies one watched extension setting.
type Key int

const (
	KeyEnvironment Key = iota
	KeyDebugMode
	KeyUserType
	KeyRealTimeValidation
)

// Keys lists every watched key in dispatch order.
var Keys = []Key{KeyEnvironment, KeyDebugMode, KeyUserType, KeyRealTimeValidation}

// Name returns the setting name without the extension namespace.
func (k Key) Name() string {
	switch k {
	case KeyEnvironment:
		return "environment"
	case KeyDebugMode:
		return "debugMode"
	case KeyUserType:
		return "userType"
	case KeyRealTimeValidation:
		return "enableAutomaticRealTimeValidation"
	default:
		return "unknown"
	}
}

// Path returns the fully qualified setting path, e.g. "docs-build.environment".
func (k Key) Path() string {
	return ExtensionName + "." + k.Name()
}

func (k Key) String() string {
	return k.Path()
}

// ParseKey accepts either the bare setting name or its qualified path.
func ParseKey(s string) (Key, error) {
	name := strings.TrimPrefix(s, ExtensionName+".")
	for _, k := range Keys {
		if strings.EqualFold(k.Name(), name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// Change is delivered to subscribers once per key whose value changed.
type Change struct {
	Key Key
}
