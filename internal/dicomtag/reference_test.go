package dicomtag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantKey  Key
		wantErr  bool
	}{
		{name: "code", input: "0010,0020", wantKind: KindCode, wantKey: Key{0x0010, 0x0020}},
		{name: "code with upper hex", input: "0008,103E", wantKind: KindCode, wantKey: Key{0x0008, 0x103e}},
		{name: "keyword", input: "PatientID", wantKind: KindName},
		{name: "keyword with digits", input: "x1045001", wantKind: KindName},
		{name: "empty", input: "", wantErr: true},
		{name: "short code", input: "0010,002", wantErr: true},
		{name: "bare number", input: "1045", wantErr: true},
		{name: "code with spaces", input: "0010, 0020", wantErr: true},
		{name: "prefixed keyword", input: "count:PatientID", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseReference(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, ref.Kind())
			assert.Equal(t, tt.input, ref.String())
			if tt.wantKind == KindCode {
				key, ok := ref.Key(nil)
				require.True(t, ok)
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

func TestReferenceKeyThroughDictionary(t *testing.T) {
	dict := MapDictionary{"PatientID": {0x0010, 0x0020}}

	key, ok := MustParseReference("patientid").Key(dict)
	require.True(t, ok)
	assert.Equal(t, Key{0x0010, 0x0020}, key)

	_, ok = MustParseReference("NoSuchKeyword").Key(dict)
	assert.False(t, ok)

	_, ok = MustParseReference("PatientID").Key(nil)
	assert.False(t, ok, "keyword without dictionary cannot bind")
}

func TestReferenceEqual(t *testing.T) {
	assert.True(t, MustParseReference("0008,103e").Equal(MustParseReference("0008,103E")))
	assert.True(t, MustParseReference("PatientID").Equal(MustParseReference("patientID")))
	assert.False(t, MustParseReference("PatientID").Equal(MustParseReference("0010,0020")))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "0008,103e", Key{0x0008, 0x103e}.String())
	assert.Equal(t, "0008,103e", CodeReference(Key{0x0008, 0x103e}).String())
}
