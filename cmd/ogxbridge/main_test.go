package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindUserConfig(t *testing.T) {
	t.Setenv("OGXBRIDGE_CONFIG", "")
	assert.Equal(t, "a.yaml", findUserConfig([]string{"run", "--config=a.yaml"}))
	assert.Equal(t, "b.toml", findUserConfig([]string{"--config", "b.toml", "run"}))
	assert.Equal(t, "", findUserConfig([]string{"--config"}))

	t.Setenv("OGXBRIDGE_CONFIG", "/etc/x.json")
	assert.Equal(t, "/etc/x.json", findUserConfig(nil))
	assert.Equal(t, "c.json", findUserConfig([]string{"--config=c.json"}))
}
