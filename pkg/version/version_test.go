package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	// Given/When: the version injected at build time, or the default
	if Version == "dev" {
		return
	}

	// Then: injected versions are semver
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got: %s", Version)
}

func TestString_NamesProgramAndBuild(t *testing.T) {
	str := String()

	assert.Contains(t, str, "surveydash "+Version)
	assert.Contains(t, str, "commit: "+Commit)
	assert.Contains(t, str, "go: "+GoVersion)
}

func TestShortAndUserAgent(t *testing.T) {
	assert.Equal(t, Version, Short())
	assert.Equal(t, "surveydash/"+Version, UserAgent())
}

func TestGetInfo_MarshalsSnakeCase(t *testing.T) {
	// Given: the build info
	info := GetInfo()
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)

	// When: encoding for `version --format json`
	data, err := json.Marshal(info)
	require.NoError(t, err)

	// Then: keys are stable
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"version", "commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, decoded, key)
	}
}
