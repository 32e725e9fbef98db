package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid integer", "30", false},
		{"valid two decimals", "26.67", false},
		{"valid one decimal", "0.5", false},
		{"zero", "0", true},
		{"negative", "-10.00", true},
		{"three decimals", "10.555", true},
		{"not a number", "ten", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSplitEven(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		n      int
		want   []string
	}{
		{"divides evenly", "90.00", 3, []string{"30", "30", "30"}},
		{"one cent remainder", "0.10", 3, []string{"0.04", "0.03", "0.03"}},
		{"two cent remainder", "80.00", 3, []string{"26.67", "26.67", "26.66"}},
		{"single share", "12.34", 1, []string{"12.34"}},
		{"more shares than cents", "0.02", 3, []string{"0.01", "0.01", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			shares := SplitEven(amount, tt.n)

			if len(shares) != len(tt.want) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tt.want))
			}
			sum := decimal.Zero
			for i, share := range shares {
				want := decimal.RequireFromString(tt.want[i])
				if !share.Equal(want) {
					t.Errorf("share[%d] = %s, want %s", i, share, want)
				}
				sum = sum.Add(share)
			}
			if !sum.Equal(amount) {
				t.Errorf("shares sum to %s, want exactly %s", sum, amount)
			}
		})
	}
}

func TestSplitWeighted(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		weights []int64
		want    []string
	}{
		{"equal weights behave like even split", "80.00", []int64{1, 1, 1}, []string{"26.67", "26.67", "26.66"}},
		{"double weight", "90.00", []int64{2, 1}, []string{"60", "30"}},
		{"remainder goes to first share", "10.00", []int64{1, 2}, []string{"3.34", "6.66"}},
		{"half portions", "50.00", []int64{2, 2, 1}, []string{"20", "20", "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			shares := SplitWeighted(amount, tt.weights)

			if len(shares) != len(tt.want) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tt.want))
			}
			sum := decimal.Zero
			for i, share := range shares {
				want := decimal.RequireFromString(tt.want[i])
				if !share.Equal(want) {
					t.Errorf("share[%d] = %s, want %s", i, share, want)
				}
				sum = sum.Add(share)
			}
			if !sum.Equal(amount) {
				t.Errorf("shares sum to %s, want exactly %s", sum, amount)
			}
		})
	}
}

func TestSplitConservation(t *testing.T) {
	// Awkward divisions must still conserve the amount exactly.
	amounts := []string{"0.01", "0.99", "1.00", "33.33", "100.01", "999.97"}
	for _, a := range amounts {
		amount := decimal.RequireFromString(a)
		for n := 1; n <= 7; n++ {
			sum := Sum(SplitEven(amount, n)...)
			if !sum.Equal(amount) {
				t.Errorf("SplitEven(%s, %d) sums to %s", a, n, sum)
			}
		}
	}
}
