package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	assert.Equal(t, fold("الصحية"), fold("الصِّحِّيَّة"))
	assert.Equal(t, "cafe", fold("Café"))
	assert.Equal(t, fold("ادارة"), fold("إدارة"))
}

func TestSearchBooks(t *testing.T) {
	mgr, _ := newManager(t)
	require.NoError(t, mgr.AddBook(context.Background(), Book{
		ID: "3000", Code: "PH-01", Title: "Clinical Pharmacology", Author: "Bennett",
		Specialization: "صيدلة", Copies: 1, RemainingCopies: 1,
	}))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"department", "العلوم الصحية", []string{"1624", "1625", "1626"}},
		{"diacritics ignored", "قامُوس", []string{"1626"}},
		{"every word must match", "قاموس الطبية", []string{"1626"}},
		{"hamza folded", "ادارة", []string{"1624", "1625"}},
		{"case insensitive", "PHARMA", []string{"3000"}},
		{"by code", "ph-01", []string{"3000"}},
		{"by specialization", "دوريات", []string{"1627"}},
		{"no match", "astronomy", []string{}},
		{"blank", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bookIDs(mgr.SearchBooks(tt.query)))
		})
	}
}
