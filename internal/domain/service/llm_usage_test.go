package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"manuscript-editor-api/internal/domain/entity"
)

func TestCalculateUsage(t *testing.T) {
	tests := []struct {
		name string
		raw  RawUsage
		tier ModelTier
		want entity.ApiUsage
	}{
		{
			name: "standard one million each",
			raw:  RawUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			tier: TierStandard,
			want: entity.ApiUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000, TotalTokens: 2_000_000, CostUSD: 18},
		},
		{
			name: "cheap one million each",
			raw:  RawUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			tier: TierCheap,
			want: entity.ApiUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000, TotalTokens: 2_000_000, CostUSD: 1.5},
		},
		{
			name: "zero",
			raw:  RawUsage{},
			tier: TierStandard,
			want: entity.ApiUsage{},
		},
		{
			name: "negative clamped",
			raw:  RawUsage{InputTokens: -5, OutputTokens: 2_000_000},
			tier: TierStandard,
			want: entity.ApiUsage{OutputTokens: 2_000_000, TotalTokens: 2_000_000, CostUSD: 30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, CalculateUsage(tt.raw, tt.tier)); diff != "" {
				t.Fatalf("CalculateUsage() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCalculateUsageIsLinear(t *testing.T) {
	samples := []RawUsage{
		{InputTokens: 1, OutputTokens: 1},
		{InputTokens: 12_345, OutputTokens: 678},
		{InputTokens: 7_919, OutputTokens: 3_001},
		{InputTokens: 250_000, OutputTokens: 4_000},
	}
	for _, tier := range []ModelTier{TierStandard, TierCheap} {
		for _, raw := range samples {
			single := CalculateUsage(raw, tier)
			double := CalculateUsage(RawUsage{InputTokens: 2 * raw.InputTokens, OutputTokens: 2 * raw.OutputTokens}, tier)
			if double.CostUSD != 2*single.CostUSD {
				t.Errorf("tier %s %+v: doubled cost = %v, want %v", tier, raw, double.CostUSD, 2*single.CostUSD)
			}
			if double.TotalTokens != 2*single.TotalTokens {
				t.Errorf("tier %s %+v: doubled total = %d, want %d", tier, raw, double.TotalTokens, 2*single.TotalTokens)
			}
		}
	}
}

func TestCheapTierIsCheaper(t *testing.T) {
	for _, raw := range []RawUsage{{1, 0}, {0, 1}, {9_000, 1_200}} {
		std := CalculateUsage(raw, TierStandard)
		cheap := CalculateUsage(raw, TierCheap)
		if !(cheap.CostUSD < std.CostUSD) {
			t.Errorf("%+v: cheap %v >= standard %v", raw, cheap.CostUSD, std.CostUSD)
		}
	}
}

func TestPriceForUnknownTier(t *testing.T) {
	if got := PriceFor(ModelTier("premium")); got != PriceFor(TierStandard) {
		t.Fatalf("PriceFor(unknown) = %+v, want standard", got)
	}
}
