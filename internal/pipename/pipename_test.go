package pipename

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transerrors "github.com/smnsjas/go-pstransport/internal/errors"
)

func TestRenderIsDeterministic(t *testing.T) {
	id := Identity{PID: 4242, StartTime: 133_500_000_000_000_000, ImageName: "pwsh"}

	first := Render(id)
	second := Render(id)

	require.Equal(t, first, second)
}

func TestRenderFieldLayout(t *testing.T) {
	id := Identity{PID: 4242, StartTime: 133_500_000_000_000_000, ImageName: "pwsh"}

	name := Render(id)

	parts := strings.Split(name, ".")
	require.Len(t, parts, 5)
	assert.Equal(t, "PSHost", parts[0])
	assert.Equal(t, "4242", parts[2])
	assert.Equal(t, "DefaultAppDomain", parts[3])
	assert.Equal(t, "pwsh", parts[4])
}

func TestRenderDistinguishesIdentities(t *testing.T) {
	base := Identity{PID: 100, StartTime: 133_500_000_000_000_000, ImageName: "pwsh"}

	otherPid := base
	otherPid.PID = 101

	otherStart := base
	otherStart.StartTime += 10_000_000 // one second later

	assert.NotEqual(t, Render(base), Render(otherPid))
	assert.NotEqual(t, Render(base), Render(otherStart))
}

func TestTruncatedHexDropsLeadingCharacter(t *testing.T) {
	// 0x123456789ABCDEF renders as "123456789ABCDEF"; the encoding keeps
	// the 8 characters after the first.
	assert.Equal(t, "23456789", truncatedHex(0x123456789ABCDEF))
}

func TestTruncatedHexPadsShortValues(t *testing.T) {
	got := truncatedHex(0x1A)

	assert.Len(t, got, 8)
	assert.Equal(t, "0000001A", got)
}

func TestFiletimeEpoch(t *testing.T) {
	// The Unix epoch in FILETIME units: seconds between 1601 and 1970
	// times 10^7.
	assert.Equal(t, int64(116_444_736_000_000_000), Filetime(time.Unix(0, 0)))

	// 100 ns resolution below the second is preserved.
	assert.Equal(t, int64(116_444_736_000_000_001), Filetime(time.Unix(0, 100)))
}

func TestDeriveUsesInjectedInspector(t *testing.T) {
	deriver := NewDeriver(&Config{
		Inspector: fakeInspector{identity: Identity{
			PID:       7,
			StartTime: 133_000_000_000_000_000,
			ImageName: "pwsh",
		}},
	})

	name, err := deriver.Derive(7)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "PSHost."))
	assert.Contains(t, name, ".7.DefaultAppDomain.pwsh")
}

func TestDeriveSelfIsStable(t *testing.T) {
	deriver := NewDeriver(nil)
	pid := os.Getpid()

	first, err := deriver.Derive(pid)
	require.NoError(t, err)

	second, err := deriver.Derive(pid)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "."+strconv.Itoa(pid)+".")
}

func TestDeriveMissingProcess(t *testing.T) {
	deriver := NewDeriver(nil)

	// Far above any default pid_max.
	_, err := deriver.Derive(1 << 30)
	require.Error(t, err)

	var notFound *transerrors.ProcessNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 1<<30, notFound.PID)
}

func TestEncodingMatchesPlatformContract(t *testing.T) {
	ft := int64(133_500_000_000_000_000)

	enc := encodeStartTime(ft)

	if runtime.GOOS == "windows" {
		assert.Equal(t, fmt.Sprintf("%d", ft), enc)
	} else {
		assert.Len(t, enc, 8)
		assert.Equal(t, truncatedHex(ft), enc)
	}
}

type fakeInspector struct {
	identity Identity
	err      error
}

func (f fakeInspector) Inspect(int) (Identity, error) {
	if f.err != nil {
		return Identity{}, f.err
	}

	return f.identity, nil
}
