package cipher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(seed byte) string {
	var sb strings.Builder
	x := seed
	for i := 0; i < KeyBits; i++ {
		x = x*73 + 41
		if x&0x10 != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func flip(key string, i int) string {
	b := []byte(key)
	if b[i] == '0' {
		b[i] = '1'
	} else {
		b[i] = '0'
	}
	return string(b)
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey(strings.Repeat("0", 256)))
	assert.NoError(t, ValidateKey(testKey(1)))
	assert.ErrorIs(t, ValidateKey(""), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey(strings.Repeat("0", 255)), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey(strings.Repeat("0", 257)), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey(strings.Repeat("0", 255)+"2"), ErrInvalidKey)
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey(3)
	for _, f := range []Format{Hex, Base64} {
		t.Run(f.String(), func(t *testing.T) {
			env, err := Seal("meet at the bloch sphere", key, f)
			require.NoError(t, err)
			assert.NotContains(t, env, "bloch")

			plain, err := Open(env, key, f)
			require.NoError(t, err)
			assert.Equal(t, "meet at the bloch sphere", plain)
		})
	}
}

func TestOpenKeyMismatch(t *testing.T) {
	key := testKey(5)
	env, err := Seal("secret", key, Hex)
	require.NoError(t, err)

	for _, i := range []int{0, 100, 255} {
		plain, err := Open(env, flip(key, i), Hex)
		assert.ErrorIs(t, err, ErrKeyMismatch, "flipped bit %d", i)
		assert.Empty(t, plain)
	}
}

func TestCompare(t *testing.T) {
	key := testKey(9)
	assert.NoError(t, Compare(key, key))
	assert.ErrorIs(t, Compare(key, flip(key, 17)), ErrKeyMismatch)
	assert.ErrorIs(t, Compare(key, key[:200]), ErrInvalidKey)
}

func TestOpenCorrupt(t *testing.T) {
	key := testKey(7)
	env, err := Seal("secret", key, Hex)
	require.NoError(t, err)

	tampered := []byte(env)
	last := len(tampered) - 1
	if tampered[last] == '0' {
		tampered[last] = '1'
	} else {
		tampered[last] = '0'
	}

	tcs := []struct {
		name     string
		envelope string
		format   Format
	}{
		{"not hex", "zz", Hex},
		{"too short", env[:20], Hex},
		{"tampered ciphertext", string(tampered), Hex},
		{"wrong format", env, Base64},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Open(tc.envelope, key, tc.format)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestSealValidation(t *testing.T) {
	_, err := Seal("", testKey(1), Hex)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = Seal("hi", "0101", Hex)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = Open("00", "0101", Hex)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("BASE64")
	require.NoError(t, err)
	assert.Equal(t, Base64, f)
	f, err = ParseFormat("hex")
	require.NoError(t, err)
	assert.Equal(t, Hex, f)
	_, err = ParseFormat("rot13")
	assert.Error(t, err)
}

func TestPack(t *testing.T) {
	key := "10000000" + "00000001" + strings.Repeat("0", 240)
	p, err := pack(key)
	require.NoError(t, err)
	require.Len(t, p, 32)
	assert.Equal(t, byte(0x01), p[0])
	assert.Equal(t, byte(0x80), p[1])
}
