package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cSource = `#include <stdio.h>

static int absolute(int value) {
    if (value > 0) {
        return value;
    }
    return -value;
}

char *greeting(const char *name) {
    static char buf[64];
    snprintf(buf, sizeof(buf), "hi %s", name);
    return buf;
}

void nested_scopes(int n) {
    int total = 0;
    {
        int inner = n * 2;
        total += inner;
    }
    printf("%d\n", total);
}
`

const cppSource = `#include <string>

namespace util {

std::string shout(const std::string &s) {
    return s + "!";
}

}
`

func TestExtractParts(t *testing.T) {
	parts, err := ExtractParts([]byte(cSource), C, "absolute")
	require.NoError(t, err)

	assert.Equal(t, "static int absolute(int value)", parts.Signature)
	assert.Equal(t, "int", parts.ReturnType)
	assert.Contains(t, parts.Body, "if (value > 0) {")
	assert.Contains(t, parts.Body, "return -value;")
	assert.NotContains(t, parts.Body, "greeting")
}

func TestExtractParts_PointerReturn(t *testing.T) {
	parts, err := ExtractParts([]byte(cSource), C, "greeting")
	require.NoError(t, err)

	assert.Equal(t, "char *", parts.ReturnType)
	assert.Contains(t, parts.Signature, "greeting(const char *name)")
}

func TestExtractParts_NestedBracesStayInBody(t *testing.T) {
	parts, err := ExtractParts([]byte(cSource), C, "nested_scopes")
	require.NoError(t, err)

	// The body must run past the inner brace scope to the final statement.
	assert.Contains(t, parts.Body, "int inner = n * 2;")
	assert.Contains(t, parts.Body, `printf("%d\n", total);`)
}

func TestExtractParts_NotFound(t *testing.T) {
	parts, err := ExtractParts([]byte(cSource), C, "absent")
	require.Error(t, err)
	assert.Nil(t, parts)

	var notFound *FunctionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "absent", notFound.Name)
	assert.Contains(t, err.Error(), `"absent"`)
}

func TestExtractParts_Cpp(t *testing.T) {
	parts, err := ExtractParts([]byte(cppSource), CPP, "shout")
	require.NoError(t, err)

	assert.Contains(t, parts.Signature, "shout(const std::string &s)")
	assert.Contains(t, parts.Body, `return s + "!";`)
}

func TestLocate(t *testing.T) {
	span, err := Locate([]byte(cSource), C, "absolute")
	require.NoError(t, err)

	text := cSource[span.Start:span.End]
	assert.True(t, strings.HasPrefix(text, "static int absolute"))
	assert.True(t, strings.HasSuffix(text, "}"))
	assert.Contains(t, text, "return -value;")
}

func TestLocate_NotFound(t *testing.T) {
	_, err := Locate([]byte(cSource), C, "absent")
	var notFound *FunctionNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestListFunctions(t *testing.T) {
	infos := ListFunctions([]byte(cSource), C)
	require.Len(t, infos, 3)

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	assert.Equal(t, []string{"absolute", "greeting", "nested_scopes"}, names)

	assert.Equal(t, "(int value)", infos[0].Params)
	assert.Equal(t, "int", infos[0].ReturnType)
	assert.Equal(t, 3, infos[0].LineNumber)

	assert.Equal(t, "char *", infos[1].ReturnType)
	assert.Equal(t, "void", infos[2].ReturnType)
}

func TestListFunctions_Empty(t *testing.T) {
	infos := ListFunctions([]byte("int x = 1;\n"), C)
	assert.Empty(t, infos)
}

func TestLanguageForFile(t *testing.T) {
	cases := map[string]Language{
		"main.c":     C,
		"util.h":     C,
		"engine.cpp": CPP,
		"engine.cc":  CPP,
		"engine.cxx": CPP,
		"engine.hpp": CPP,
		"engine.hh":  CPP,
		"no_ext":     C,
	}
	for path, want := range cases {
		assert.Equal(t, want, LanguageForFile(path), path)
	}
}
