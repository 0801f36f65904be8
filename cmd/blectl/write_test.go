package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/srg/blectl/internal/gatt"
	"github.com/srg/blectl/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// WriteTestSuite covers the write command against an alert peripheral
type WriteTestSuite struct {
	CommandTestSuite
}

func TestWriteTestSuite(t *testing.T) {
	suite.Run(t, new(WriteTestSuite))
}

func (s *WriteTestSuite) SetupTest() {
	s.WithPeripheral().
		WithServiceAt("1802", 0x0020).
		WithCharacteristicAt("2A06", 0x0021, "write,write-without-response", []byte{0x00}).
		WithCharacteristicAt("2A07", 0x0023, "write-without-response", nil).
		WithCharacteristicAt("2A08", 0x0025, "read", []byte{0x01})

	s.CommandTestSuite.SetupTest()
}

func (s *WriteTestSuite) TestWriteWithResponse() {
	// GOAL: Verify write defaults to a write request when supported
	//
	// TEST SCENARIO: Write hex to 2a06 → write request issued → success printed

	out, err := s.ExecuteCommand("write", s.Address(), "1802", "0x0021", "02", "--hex")
	s.Require().NoError(err, "write MUST succeed")
	s.Equal("Write successful\n", out)

	s.Equal([]testutils.WriteRecord{
		{Handle: 0x0021, Value: []byte{0x02}, Flags: gatt.WriteFlagNone},
	}, s.Platform.Writes())
}

func (s *WriteTestSuite) TestWriteWithoutResponse() {
	s.Run("flag", func() {
		_, err := s.ExecuteCommand("write", s.Address(), "1802", "0x0021", "high", "--without-response")
		s.Require().NoError(err)

		writes := s.Platform.Writes()
		s.Require().NotEmpty(writes)
		last := writes[len(writes)-1]
		s.Equal([]byte("high"), last.Value, "string data MUST be written verbatim")
		s.Equal(gatt.WriteFlagWithoutResponse, last.Flags)
	})

	s.Run("only mode offered", func() {
		_, err := s.ExecuteCommand("write", s.Address(), "1802", "0x0023", "01", "--hex")
		s.Require().NoError(err)

		writes := s.Platform.Writes()
		s.Equal(gatt.WriteFlagWithoutResponse, writes[len(writes)-1].Flags,
			"characteristic without write requests MUST fall back to write commands")
	})

	s.Run("config default", func() {
		path := filepath.Join(s.T().TempDir(), "blectl.yaml")
		s.Require().NoError(os.WriteFile(path, []byte("write_mode: without-response\n"), 0o600))

		_, err := s.ExecuteCommand("write", s.Address(), "1802", "0x0021", "03", "--hex", "--config", path)
		s.Require().NoError(err)

		writes := s.Platform.Writes()
		s.Equal(gatt.WriteFlagWithoutResponse, writes[len(writes)-1].Flags)
	})
}

func (s *WriteTestSuite) TestWriteErrors() {
	s.Run("not writable", func() {
		_, err := s.ExecuteCommand("write", s.Address(), "1802", "0x0025", "01", "--hex")
		s.Require().Error(err)
		s.ErrorIs(err, ErrNotWritable)
		s.Contains(err.Error(), "read")
	})

	s.Run("invalid hex", func() {
		_, err := s.ExecuteCommand("write", s.Address(), "1802", "0x0021", "ZZ", "--hex")
		s.Require().Error(err)
		s.Contains(err.Error(), "invalid hex data")
	})

	s.Run("peripheral rejects", func() {
		s.Platform.FailCharacteristicWrite(0x0021, true)
		defer s.Platform.FailCharacteristicWrite(0x0021, false)

		_, err := s.ExecuteCommand("write", s.Address(), "1802", "0x0021", "01", "--hex")
		s.Require().Error(err)
		s.ErrorIs(err, gatt.ErrCharacteristicWrite)
		s.Contains(FormatUserError(err), "failed to write characteristic")
	})
}

func TestParseWriteData(t *testing.T) {
	defer func() { writeHex = false }()

	tests := []struct {
		name     string
		hex      bool
		input    string
		expected []byte
		wantErr  bool
	}{
		{name: "string", input: "high", expected: []byte("high")},
		{name: "simple hex", hex: true, input: "0102FF", expected: []byte{0x01, 0x02, 0xFF}},
		{name: "hex with spaces", hex: true, input: "01 02 03", expected: []byte{0x01, 0x02, 0x03}},
		{name: "hex with colons", hex: true, input: "01:02:03", expected: []byte{0x01, 0x02, 0x03}},
		{name: "hex with 0x prefix", hex: true, input: "0x01 0x02", expected: []byte{0x01, 0x02}},
		{name: "mixed separators", hex: true, input: "0x01:02-03 04", expected: []byte{0x01, 0x02, 0x03, 0x04}},
		{name: "invalid hex", hex: true, input: "ZZZZ", wantErr: true},
		{name: "odd length hex", hex: true, input: "012", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeHex = tt.hex

			result, err := parseWriteData(tt.input)
			if tt.wantErr {
				assert.Error(t, err, "MUST fail on malformed hex")
				assert.Nil(t, result, "result MUST be nil on error")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result, "decoded bytes MUST match expected")
		})
	}
}
