package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/models"
)

func names(files []models.RemoteFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestMatches(t *testing.T) {
	const granule = "MYD021KM.A2024123.0305.061.NRT.hdf"
	five := 5
	ten := 10

	tests := []struct {
		name   string
		file   string
		hour   int
		bucket *int
		want   bool
	}{
		{name: "any bucket in hour", file: granule, hour: 3, want: true},
		{name: "other hour", file: granule, hour: 4, want: false},
		{name: "exact bucket", file: granule, hour: 3, bucket: &five, want: true},
		{name: "wrong bucket", file: granule, hour: 3, bucket: &ten, want: false},
		{name: "token must be dot delimited", file: "MYD03.A2024123.0305061.hdf", hour: 3, want: false},
		{name: "minute off the grid", file: "X.0303.hdf", hour: 3, want: false},
		{name: "midnight", file: "X.0000.hdf", hour: 0, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.file, tt.hour, tt.bucket))
		})
	}
}

func TestHoursIsHalfOpen(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, Hours(3, 6))
	assert.Empty(t, Hours(7, 7))
	assert.Empty(t, Hours(8, 2))
	assert.NotContains(t, Hours(0, 23), 23)
}

func TestSelectBucket5(t *testing.T) {
	files := []models.RemoteFile{
		{Name: "MYD021KM.A2024123.0305.061.NRT.hdf"},
		{Name: "MYD021KM.A2024123.0300.061.NRT.hdf"},
		{Name: "MYD021KM.A2024123.0400.061.NRT.hdf"},
	}

	got := Select(files, 3, 4, models.PolicyBucket5)
	assert.Equal(t, []string{
		"MYD021KM.A2024123.0300.061.NRT.hdf",
		"MYD021KM.A2024123.0305.061.NRT.hdf",
	}, names(got))

	assert.Equal(t,
		[]string{"MYD021KM.A2024123.0400.061.NRT.hdf"},
		names(Select(files, 4, 5, models.PolicyBucket5)),
	)
}

func TestSelectNeverScansHourEnd(t *testing.T) {
	files := []models.RemoteFile{{Name: "X.1500.hdf"}, {Name: "X.1455.hdf"}}

	got := Select(files, 14, 15, models.PolicyBucket5)
	assert.Equal(t, []string{"X.1455.hdf"}, names(got))
	assert.Empty(t, Select(files, 15, 15, models.PolicyBucket5))
}

func TestSelectBucket5KeepsDuplicateOccurrences(t *testing.T) {
	files := []models.RemoteFile{{Name: "X.0100.0105.hdf"}}

	got := Select(files, 1, 2, models.PolicyBucket5)
	assert.Equal(t, []string{"X.0100.0105.hdf", "X.0100.0105.hdf"}, names(got))
}

func TestSelectFirstPerHour(t *testing.T) {
	files := []models.RemoteFile{
		{Name: "A.0210.hdf"},
		{Name: "A.0205.hdf"},
		{Name: "A.0200.hdf"},
		{Name: "A.0300.hdf"},
		{Name: "A.0420.hdf"},
	}

	got := Select(files, 2, 5, models.PolicyFirst)
	assert.Equal(t, []string{"A.0205.hdf", "A.0300.hdf"}, names(got))
}
