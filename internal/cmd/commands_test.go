package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagucloud/licensor/internal/build"
	"github.com/dagucloud/licensor/internal/license"
)

func TestStatusCommand(t *testing.T) {
	t.Run("NoLicense", func(t *testing.T) {
		env := setupTest(t)
		env.runCommand(t, Status(), cmdTest{
			expectedOut: []string{"NOT_FOUND", "product: Licensor Test", "last sync: never"},
		})
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		env := setupTest(t)
		env.runCommand(t, Status(), cmdTest{
			args:    []string{"-o", "json"},
			wantErr: `unsupported output format "json"`,
		})
	})

	t.Run("Agreement", func(t *testing.T) {
		agreement := filepath.Join(t.TempDir(), "eula.txt")
		require.NoError(t, os.WriteFile(agreement, []byte("Do not resell."), 0600))
		env := setupTest(t, "agreement:\n  text_file: "+agreement+"\n")

		env.runCommand(t, Status(), cmdTest{
			args:        []string{"--agreement"},
			expectedOut: []string{"Do not resell."},
		})
	})
}

func TestAssignCommand(t *testing.T) {
	t.Run("SerialKey", func(t *testing.T) {
		env := setupTest(t)

		env.runCommand(t, Assign(), cmdTest{
			args:        []string{"--email", "jane@example.com", "--serial", "ABCD-1234-EFGH-5678"},
			expectedOut: []string{"License for Licensor Test assigned to Jane Doe <jane@example.com>"},
		})

		out := env.runCommand(t, Status(), cmdTest{
			expectedOut: []string{"✓ VALID", "type: full", "serial: ABCD***********5678"},
		})
		assert.NotContains(t, out, "last sync: never")

		env.runCommand(t, Status(), cmdTest{
			args:        []string{"-o", "yaml"},
			expectedOut: []string{"result: VALID", "code: 10", "email: jane@example.com"},
		})

		require.Len(t, env.server.registrations, 1)
		reg := env.server.registrations[0]
		assert.Equal(t, license.TestHardwareID, reg["hardware_id"])
		assert.Equal(t, "ABCD-1234-EFGH-5678", reg["serial_key"])
	})

	t.Run("Rejected", func(t *testing.T) {
		env := setupTest(t)
		env.runCommand(t, Assign(), cmdTest{
			args:    []string{"--email", "jane@example.com", "--serial", "REVOKED"},
			wantErr: "INVALID",
		})
		env.runCommand(t, Status(), cmdTest{expectedOut: []string{"NOT_FOUND"}})
	})

	t.Run("LicenseFile", func(t *testing.T) {
		env := setupTest(t)
		file := env.writeLicenseFile(t)

		env.runCommand(t, Assign(), cmdTest{
			args:        []string{"--file", file},
			expectedOut: []string{"License for Licensor Test assigned to Jane Doe"},
		})
		assert.Empty(t, env.server.registrations, "file installs do not contact the server")

		env.runCommand(t, Validate(), cmdTest{expectedOut: []string{"VALID"}})
	})

	t.Run("LicenseFileForOtherHardware", func(t *testing.T) {
		env := setupTest(t)
		file := env.writeLicenseFile(t, func(c *license.LicenseClaims) {
			c.HardwareID = "other-computer"
		})

		env.runCommand(t, Assign(), cmdTest{
			args:    []string{"--file", file},
			wantErr: "UNKNOWN_HOST",
		})
	})

	t.Run("InvalidFlags", func(t *testing.T) {
		env := setupTest(t)
		env.runCommand(t, Assign(), cmdTest{
			args:    []string{"--file", "x", "--email", "jane@example.com"},
			wantErr: "cannot be combined",
		})
		env.runCommand(t, Assign(), cmdTest{
			args:    []string{"--email", "jane@example.com"},
			wantErr: "--email and --serial are required",
		})
	})
}

func TestTrialCommand(t *testing.T) {
	t.Run("Granted", func(t *testing.T) {
		env := setupTest(t)
		env.runCommand(t, Trial(), cmdTest{
			args:        []string{"--email", "joe@example.com", "--first-name", "Joe", "--last-name", "Bloggs"},
			expectedOut: []string{"Trial license for Licensor Test assigned to Joe Bloggs <joe@example.com>", "Expires on"},
		})
		env.runCommand(t, Status(), cmdTest{expectedOut: []string{"VALID", "type: trial"}})
	})

	t.Run("TrialsDisabled", func(t *testing.T) {
		env := setupTest(t)
		env.server.trialsDisabled = true
		env.runCommand(t, Trial(), cmdTest{
			args:    []string{"--email", "joe@example.com", "--first-name", "Joe", "--last-name", "Bloggs"},
			wantErr: "TRIALS_DISABLED",
		})
	})

	t.Run("MissingNames", func(t *testing.T) {
		env := setupTest(t)
		env.runCommand(t, Trial(), cmdTest{
			args:    []string{"--email", "joe@example.com"},
			wantErr: "INCOMPLETE",
		})
	})
}

func TestValidateCommand(t *testing.T) {
	t.Run("NoLicense", func(t *testing.T) {
		env := setupTest(t)
		env.runCommand(t, Validate(), cmdTest{
			expectedOut: []string{"NOT_FOUND"},
			wantErr:     "license is not valid: NOT_FOUND",
		})
		assert.Zero(t, env.server.syncCount(), "offline validation never contacts the server")
	})

	t.Run("SyncConfirms", func(t *testing.T) {
		env := setupTest(t)
		file := env.writeLicenseFile(t)
		env.runCommand(t, Assign(), cmdTest{args: []string{"--file", file}})

		env.runCommand(t, Validate(), cmdTest{
			args:        []string{"--sync"},
			expectedOut: []string{"✓ VALID"},
		})
		assert.Equal(t, 1, env.server.syncCount())

		// The persisted sync result is trusted by the next process.
		env.runCommand(t, Validate(), cmdTest{args: []string{"--sync"}})
		assert.Equal(t, 1, env.server.syncCount())
	})

	t.Run("SyncDisables", func(t *testing.T) {
		env := setupTest(t)
		file := env.writeLicenseFile(t)
		env.runCommand(t, Assign(), cmdTest{args: []string{"--file", file}})
		env.server.setSyncResult(license.ResultDisabled)

		env.runCommand(t, Validate(), cmdTest{
			args:        []string{"--sync"},
			expectedOut: []string{"DISABLED"},
			wantErr:     "license is not valid: DISABLED",
		})

		env.runCommand(t, Status(), cmdTest{expectedOut: []string{"NOT_FOUND"}})
	})
}

func TestRemoveCommand(t *testing.T) {
	env := setupTest(t)
	file := env.writeLicenseFile(t)
	env.runCommand(t, Assign(), cmdTest{args: []string{"--file", file}})

	env.runCommand(t, Remove(), cmdTest{expectedOut: []string{"License for Licensor Test removed"}})
	env.runCommand(t, Status(), cmdTest{expectedOut: []string{"NOT_FOUND"}})

	env.runCommand(t, Remove(), cmdTest{expectedOut: []string{"removed"}})
}

func TestPathCommand(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		env := setupTest(t)
		out := env.runCommand(t, Path(), cmdTest{})
		assert.True(t, strings.HasPrefix(strings.TrimSpace(out), env.dataDir), out)
		assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "license"), out)
	})

	t.Run("Move", func(t *testing.T) {
		env := setupTest(t)
		file := env.writeLicenseFile(t)
		env.runCommand(t, Assign(), cmdTest{args: []string{"--file", file}})

		target := filepath.Join(t.TempDir(), "moved", "widget.license")
		env.runCommand(t, Path(), cmdTest{
			args:        []string{target},
			expectedOut: []string{target},
		})

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), ".")
	})

	t.Run("ConfiguredPath", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "configured.license")
		env := setupTest(t, "license_file: "+target+"\n")
		env.runCommand(t, Path(), cmdTest{expectedOut: []string{target}})

		file := env.writeLicenseFile(t)
		env.runCommand(t, Assign(), cmdTest{args: []string{"--file", file}})
		_, err := os.Stat(target)
		assert.NoError(t, err)
	})

	t.Run("Rejected", func(t *testing.T) {
		env := setupTest(t)
		env.runCommand(t, Path(), cmdTest{
			args:    []string{t.TempDir()},
			wantErr: "cannot be used",
		})
	})
}

func TestVersionCommand(t *testing.T) {
	cmd := Version()
	var buf strings.Builder
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, build.Version+"\n", buf.String())
}
