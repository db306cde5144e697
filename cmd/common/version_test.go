package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintVersion(&buf, "smart-ea")
	assert.Contains(t, buf.String(), "smart-ea v"+ProjectVersion)
	assert.Contains(t, buf.String(), "Build: "+BuildCommit)
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, ProjectRepo, info.Repository)
	assert.Contains(t, GetFullVersion(), ProjectVersion)
	assert.Equal(t, BuildCommit == "dev", IsDevBuild())
}
