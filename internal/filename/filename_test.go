package filename

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/filings-tracker/constants"
)

func TestExtractFilerCode(t *testing.T) {
	cases := []struct {
		name string
		id   string
		want string
	}{
		{"numeric code", "c000980113011140304.pdf", "000980"},
		{"alphanumeric code", "c0009A0109011100325.pdf", "0009A0"},
		{"missing marker", "000980113011140304.pdf", "000980113011140304.pdf"},
		{"lowercase code", "c0009a0109011100325.pdf", "c0009a0109011100325.pdf"},
		{"too short", "c12345", "c12345"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractFilerCode(tc.id))
		})
	}
}

func TestExtractUploadDate(t *testing.T) {
	cases := []struct {
		name string
		id   string
		want string
	}{
		{"leading zeros stripped", "c000980113011140304.pdf", "114年3月4日"},
		{"two digit month and day", "c0009A0109011101225.pdf", "110年12月25日"},
		{"zero day kept empty", "c000980113011140300.pdf", "114年3月日"},
		{"other extension", "report1130517.PDF", "113年5月17日"},
		{"no extension", "c000980113011140304", constants.UnknownDate},
		{"too few digits", "c12.pdf", constants.UnknownDate},
		{"digits not trailing", "1140304-draft.pdf", constants.UnknownDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractUploadDate(tc.id))
		})
	}
}

func TestFieldsIsStable(t *testing.T) {
	id := "c000980113011140304.pdf"
	first := Fields(id)
	second := Fields(id)

	assert.Equal(t, first, second)
	assert.Equal(t, "000980", first.FilerCode)
	assert.Equal(t, "114年3月4日", first.UploadDate)
}
