package questions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xhad/sitekb/internal/models"
)

func TestQuestionCounts(t *testing.T) {
	e := New("Deseguridad.net")

	tests := []struct {
		mode     Mode
		pageType models.PageType
		want     int
	}{
		{ModeFiles, models.PageService, 10},
		{ModeFiles, models.PageBlog, 10},
		{ModeClassified, models.PageService, 9},
		{ModeClassified, models.PageLegal, 5},
		{ModeClassified, models.PageBlog, 5},
		{ModeClassified, models.PageHome, 4},
		{ModeClassified, models.PageOther, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.pageType), func(t *testing.T) {
			assert.Len(t, e.Questions(tt.mode, tt.pageType, "Riesgo Psicosocial"), tt.want)
			assert.Equal(t, tt.want, e.Count(tt.mode, tt.pageType))
		})
	}
}

func TestQuestionsSubstituteTitle(t *testing.T) {
	e := New("Deseguridad.net")

	got := e.Questions(ModeClassified, models.PageService, "Riesgo Psicosocial")
	assert.Equal(t, "¿Para qué sirve exactamente el servicio de Riesgo Psicosocial?", got[1])
	for _, q := range got {
		assert.Contains(t, q, "Riesgo Psicosocial")
	}

	assert.Equal(t, e.Questions(ModeClassified, models.PageService, "Riesgo Psicosocial"), got)
}

func TestQuestionsFillerWhenTitleEmpty(t *testing.T) {
	e := New("Deseguridad.net")

	tests := []struct {
		mode     Mode
		pageType models.PageType
		filler   string
	}{
		{ModeFiles, models.PageService, "este servicio"},
		{ModeClassified, models.PageService, "este servicio"},
		{ModeClassified, models.PageLegal, "este documento"},
		{ModeClassified, models.PageBlog, "este artículo del blog"},
		{ModeClassified, models.PageHome, "Deseguridad.net"},
		{ModeClassified, models.PageOther, "esta página"},
	}

	for _, tt := range tests {
		t.Run(string(tt.pageType), func(t *testing.T) {
			for _, q := range e.Questions(tt.mode, tt.pageType, "  ") {
				assert.Contains(t, q, tt.filler)
			}
		})
	}
}

func TestClassifiedServiceHasOneTimeQuestion(t *testing.T) {
	e := New("Deseguridad.net")

	timeQuestions := 0
	for _, q := range e.Questions(ModeClassified, models.PageService, "X") {
		if strings.Contains(strings.ToLower(q), "tiempo") || strings.Contains(strings.ToLower(q), "demora") {
			timeQuestions++
		}
	}
	assert.Equal(t, 1, timeQuestions)
}

func TestQuestionsAreUnique(t *testing.T) {
	e := New("Deseguridad.net")
	for _, mode := range []Mode{ModeFiles, ModeClassified} {
		for _, pt := range []models.PageType{models.PageService, models.PageLegal, models.PageBlog, models.PageHome, models.PageOther} {
			seen := map[string]bool{}
			for _, q := range e.Questions(mode, pt, "Título") {
				assert.False(t, seen[q], q)
				seen[q] = true
			}
		}
	}
}
