package string

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@uni.edu", NormalizeEmail("  Ada@Uni.EDU "))
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "holder_email", ToSnakeCase("HolderEmail"))
	assert.Equal(t, "file_name", ToSnakeCase("fileName"))
	assert.Equal(t, "document_id", ToSnakeCase("DocumentID"))
}

func TestTrimStrings(t *testing.T) {
	a, b := " x ", "y\n"
	TrimStrings(&a, &b)
	assert.Equal(t, "x", a)
	assert.Equal(t, "y", b)
}
