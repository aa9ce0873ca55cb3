package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Protocol, info.Protocol)
	assert.Contains(t, info.String(), "Protocol:   "+Protocol)
	assert.True(t, strings.HasPrefix(UserAgent(), "lombridge/"+Version+" "))
}
