package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/guarzo/autopricing/internal/model"
)

func TestNewTestDataFactory(t *testing.T) {
	// Test with fixed seed
	factory1 := NewTestDataFactory(12345)
	factory2 := NewTestDataFactory(12345)

	// Should generate same values with same seed
	style1 := factory1.GenerateStyle()
	style2 := factory2.GenerateStyle()

	if style1 != style2 {
		t.Errorf("factories with same seed should generate same values, got %s and %s", style1, style2)
	}

	// Test with different seeds
	factory3 := NewTestDataFactory(54321)
	style3 := factory3.GenerateStyle()

	if style1 == style3 {
		t.Error("factories with different seeds should generate different values")
	}
}

func TestGenerateStyle(t *testing.T) {
	factory := NewTestDataFactory(0)
	style := factory.GenerateStyle()

	if !strings.HasPrefix(style, "test-") {
		t.Errorf("style should start with 'test-', got %s", style)
	}
}

func TestGeneratePrice(t *testing.T) {
	factory := NewTestDataFactory(0)
	for i := 0; i < 100; i++ {
		price := factory.GeneratePrice()
		if price < 5 || price > 500 {
			t.Fatalf("price should be between 5 and 500, got %v", price)
		}
	}
}

func TestGenerateCompetitors(t *testing.T) {
	factory := NewTestDataFactory(7)
	for i := 0; i < 50; i++ {
		s := factory.GenerateCompetitors(100, 4)
		if s.Len() > 4 {
			t.Fatalf("expected at most 4 competitors, got %d", s.Len())
		}
		if len(s.InStock) != s.Len() || len(s.PriceChangeDays) != s.Len() {
			t.Fatalf("competitor sequences must be aligned: %+v", s)
		}
	}
}

func TestGenerateContext(t *testing.T) {
	factory := NewTestDataFactory(3)
	seen := map[model.Key]bool{}
	for _, c := range factory.GenerateContexts(200) {
		if seen[c.Key()] {
			t.Fatalf("duplicate key %v", c.Key())
		}
		seen[c.Key()] = true
		if err := c.Validate(); err != nil {
			t.Fatalf("generated context should be valid: %v", err)
		}
		if c.BasePrice <= 0 {
			t.Fatalf("base price should be positive, got %v", c.BasePrice)
		}
		if !model.Defined(c.MinDiscount) || !model.Defined(c.MaxDiscount) {
			t.Fatal("discount bounds should be defined")
		}
		if c.Floor() > c.Ceiling() {
			t.Fatalf("floor %v above ceiling %v", c.Floor(), c.Ceiling())
		}
	}
}

func TestGenerateTestDate(t *testing.T) {
	factory := NewTestDataFactory(0)
	date := factory.GenerateTestDate()
	now := time.Now()

	// Should be within the last year
	oneYearAgo := now.AddDate(-1, 0, 0)
	if date.Before(oneYearAgo) || date.After(now) {
		t.Errorf("date should be within last year, got %v", date)
	}
}
