package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmdesk/crm-service/internal/repository/repotest"
)

func TestNeedsReview(t *testing.T) {
	cases := []struct {
		helpful, notHelpful int64
		want                bool
	}{
		{0, 10, false},
		{5, 5, false},
		{5, 6, true},
		{6, 5, false},
		{20, 21, true},
		{21, 21, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, needsReview(tc.helpful, tc.notHelpful), "%d/%d", tc.helpful, tc.notHelpful)
	}
}

func TestKnowledgeArticleLifecycle(t *testing.T) {
	svc := NewKnowledgeService(repotest.NewKnowledge(), nil)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, " Internet ", "", 1)
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "  ", "", 2)
	requireCode(t, err, "VALIDATION_FAILED")

	article, err := svc.CreateArticle(ctx, supportA, ArticleInput{
		CategoryID: &cat.ID,
		Title:      ptr("Reiniciar o roteador"),
		Content:    ptr("Desligue por 30 segundos."),
		Tags:       []string{"Roteador", " wifi ", "roteador", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"roteador", "wifi"}, article.Tags)
	assert.False(t, article.Published)
	assert.Equal(t, "support-a", article.AuthorID)

	_, err = svc.CreateArticle(ctx, supportA, ArticleInput{Title: ptr("sem corpo")})
	requireCode(t, err, "VALIDATION_FAILED")

	viewed, err := svc.Article(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), viewed.Views)

	published := true
	updated, err := svc.UpdateArticle(ctx, article.ID, ArticleInput{Published: &published})
	require.NoError(t, err)
	assert.True(t, updated.Published)
	assert.Equal(t, "Reiniciar o roteador", updated.Title)

	_, err = svc.UpdateArticle(ctx, article.ID, ArticleInput{Title: ptr(" ")})
	requireCode(t, err, "VALIDATION_FAILED")
	_, err = svc.UpdateArticle(ctx, "ghost", ArticleInput{})
	requireCode(t, err, "NOT_FOUND")

	list, err := svc.Articles(ctx, ArticleListFilters{PublishedOnly: true, Tag: ptr("wifi")})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestKnowledgeFeedbackFlagsAndContentEditClears(t *testing.T) {
	svc := NewKnowledgeService(repotest.NewKnowledge(), nil)
	ctx := context.Background()

	article, err := svc.CreateArticle(ctx, supportA, ArticleInput{Title: ptr("Boleto"), Content: ptr("2ª via no portal.")})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = svc.Feedback(ctx, article.ID, true)
		require.NoError(t, err)
	}
	var got = article
	for i := 0; i < 6; i++ {
		got, err = svc.Feedback(ctx, article.ID, false)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(5), got.Helpful)
	assert.Equal(t, int64(6), got.NotHelpful)
	assert.True(t, got.NeedsReview)

	flagged := true
	review, err := svc.Articles(ctx, ArticleListFilters{NeedsReview: &flagged})
	require.NoError(t, err)
	assert.Len(t, review, 1)

	rewritten, err := svc.UpdateArticle(ctx, article.ID, ArticleInput{Content: ptr("Acesse Financeiro > Boletos.")})
	require.NoError(t, err)
	assert.False(t, rewritten.NeedsReview)

	_, err = svc.Feedback(ctx, "ghost", true)
	requireCode(t, err, "NOT_FOUND")
}
