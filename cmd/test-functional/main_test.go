package test_functional

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"

	"github.com/gowenong/where-in-the-world/internal/models"
)

func TestPersonCrud(t *testing.T) {
	u := AppBaseURL
	u.Path = "/people"

	t.Run("create and fetch", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetResult(&models.PersonResp{}).
			SetBody(`
			{"name": "Ada Lovelace", "country": "France", "city": "Paris", "isStarred": true, "tags": ["Family", "family"], "visitedLocations": ["Tokyo"]}
		`).
			Post(u.String())
		assert.Nil(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())

		got, ok := resp.Result().(*models.PersonResp)
		assert.True(t, ok)
		assert.NotZero(t, got.ID)
		assert.Equal(t, []string{"Family"}, got.Tags)

		var (
			name    string
			starred bool
		)
		err = DBConn.QueryRow(ctx, "SELECT name, is_starred FROM people WHERE id=$1", got.ID).Scan(&name, &starred)
		assert.Nil(t, err)
		assert.Equal(t, "Ada Lovelace", name)
		assert.True(t, starred)

		var pairCount int
		err = DBConn.QueryRow(ctx, "SELECT count(*) FROM country_cities WHERE country='France' AND city='Paris'").Scan(&pairCount)
		assert.Nil(t, err)
		assert.Equal(t, 1, pairCount)

		getURL := AppBaseURL
		getURL.Path = fmt.Sprintf("/people/%d", got.ID)
		resp, err = resty.New().
			R().
			SetContext(ctx).
			SetResult(&models.PersonResp{}).
			Get(getURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())

		fetched, ok := resp.Result().(*models.PersonResp)
		assert.True(t, ok)
		assert.Equal(t, got.ID, fetched.ID)
		assert.Equal(t, []string{"Tokyo"}, fetched.VisitedLocations)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(`
			{"name": "   ", "tags": ["Family"]}
		`).
			Post(u.String())
		assert.Nil(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

		var count int
		err = DBConn.QueryRow(ctx, "SELECT count(*) FROM people").Scan(&count)
		assert.Nil(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("update clears only what it names", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetResult(&models.PersonResp{}).
			SetBody(`
			{"name": "Ada", "tags": ["Family", "Work"]}
		`).
			Post(u.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		created := resp.Result().(*models.PersonResp)

		putURL := AppBaseURL
		putURL.Path = fmt.Sprintf("/people/%d", created.ID)

		resp, err = resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetResult(&models.PersonResp{}).
			SetBody(`
			{"name": "Ada Lovelace"}
		`).
			Put(putURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		updated := resp.Result().(*models.PersonResp)
		assert.ElementsMatch(t, []string{"Family", "Work"}, updated.Tags)

		resp, err = resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetResult(&models.PersonResp{}).
			SetBody(`
			{"tags": []}
		`).
			Put(putURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		updated = resp.Result().(*models.PersonResp)
		assert.Empty(t, updated.Tags)

		var count int
		err = DBConn.QueryRow(ctx, "SELECT count(*) FROM tags").Scan(&count)
		assert.Nil(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestTagLifecycle(t *testing.T) {
	defer FlushDB()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	peopleURL := AppBaseURL
	peopleURL.Path = "/people"
	tagsURL := AppBaseURL
	tagsURL.Path = "/tags"

	create := func(body string) *models.PersonResp {
		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetResult(&models.PersonResp{}).
			SetBody(body).
			Post(peopleURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		return resp.Result().(*models.PersonResp)
	}
	listTags := func() []string {
		tags := make([]string, 0)
		resp, err := resty.New().
			R().
			SetContext(ctx).
			SetResult(&tags).
			Get(tagsURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		return tags
	}
	remove := func(id uint64) {
		delURL := AppBaseURL
		delURL.Path = fmt.Sprintf("/people/%d", id)
		resp, err := resty.New().
			R().
			SetContext(ctx).
			Delete(delURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	}

	ada := create(`{"name": "Ada Lovelace", "tags": ["Family"]}`)
	alan := create(`{"name": "Alan Turing", "tags": ["Family"]}`)

	assert.Equal(t, []string{"Family"}, listTags())

	remove(ada.ID)
	assert.Equal(t, []string{"Family"}, listTags())

	remove(alan.ID)
	assert.Empty(t, listTags())
}

func TestSearchAndFilter(t *testing.T) {
	defer FlushDB()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	peopleURL := AppBaseURL
	peopleURL.Path = "/people"

	for _, body := range []string{
		`{"name": "Anna", "isStarred": true, "tags": ["Family"]}`,
		`{"name": "Hannah", "tags": ["Work"]}`,
		`{"name": "Alan", "tags": ["Work"]}`,
		`{"name": "Grace"}`,
	} {
		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(body).
			Post(peopleURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
	}

	searchURL := AppBaseURL
	searchURL.Path = "/people/search"
	results := make([]models.PersonSearchResp, 0)
	resp, err := resty.New().
		R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": "an", "limit": "2"}).
		SetResult(&results).
		Get(searchURL.String())
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, results, 2)

	people := make([]models.PersonResp, 0)
	resp, err = resty.New().
		R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"tags": "family,work"}).
		SetResult(&people).
		Get(peopleURL.String())
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, people, 3)

	people = make([]models.PersonResp, 0)
	resp, err = resty.New().
		R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"starred": "true"}).
		SetResult(&people).
		Get(peopleURL.String())
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Len(t, people, 1)
	assert.Equal(t, "Anna", people[0].Name)
}
