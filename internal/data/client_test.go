package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-report/internal/model"
)

const reportBody = `{"ResultData":"[{\"MonthYear\":\"Jan-24\",\"PV\":100,\"EV\":80,\"AC\":90,\"ExecutedValue\":70,\"SellingPrice\":null},{\"MonthYear\":\"Feb-24\",\"PV\":100,\"EV\":130,\"AC\":100,\"ExecutedValue\":120,\"SellingPrice\":150}]"}`

func upstream(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func reportDate() time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func TestFetchReportDecodesStringResultData(t *testing.T) {
	var gotPath, gotProject, gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotProject = r.URL.Query().Get("Project")
		gotDate = r.URL.Query().Get("Date")
		_, _ = w.Write([]byte(reportBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	recs, err := c.FetchReport(context.Background(), ReportQuery{ProjectID: 42, Date: reportDate()})
	require.NoError(t, err)

	assert.Equal(t, "/GetErnMgmtRep", gotPath)
	assert.Equal(t, "42", gotProject)
	assert.Equal(t, "2024-03-01", gotDate)

	require.Len(t, recs, 2)
	assert.Equal(t, "Jan-24", recs[0].MonthYear)
	assert.Nil(t, recs[0].SellingPrice)
	require.NotNil(t, recs[1].SellingPrice)
	assert.Equal(t, 150.0, *recs[1].SellingPrice)
}

func TestFetchReportAcceptsArrayResultData(t *testing.T) {
	srv := upstream(t, http.StatusOK, `{"ResultData":[{"MonthYear":"Jan-24","PV":1,"EV":2,"AC":3}]}`, nil)
	recs, err := NewClient(srv.URL, time.Second).FetchReport(context.Background(), ReportQuery{ProjectID: 1, Date: reportDate()})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 3.0, recs[0].AC)
}

func TestFetchReportNonArrayIsEmpty(t *testing.T) {
	for _, body := range []string{
		`{"ResultData":"{\"message\":\"nothing\"}"}`,
		`{"ResultData":""}`,
		`{"ResultData":null}`,
		`{}`,
	} {
		srv := upstream(t, http.StatusOK, body, nil)
		recs, err := NewClient(srv.URL, time.Second).FetchReport(context.Background(), ReportQuery{ProjectID: 1, Date: reportDate()})
		require.NoError(t, err, body)
		assert.Empty(t, recs, body)
	}
}

func TestFetchReportMalformed(t *testing.T) {
	srv := upstream(t, http.StatusOK, `{"ResultData":"[{not json"}`, nil)
	_, err := NewClient(srv.URL, time.Second).FetchReport(context.Background(), ReportQuery{ProjectID: 1, Date: reportDate()})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	srv = upstream(t, http.StatusOK, `<html>`, nil)
	_, err = NewClient(srv.URL, time.Second).FetchReport(context.Background(), ReportQuery{ProjectID: 1, Date: reportDate()})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestFetchReportStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusInternalServerError, "API_ERROR"},
		{http.StatusNotFound, "NOT_FOUND"},
		{http.StatusForbidden, "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		srv := upstream(t, tt.status, `{}`, nil)
		_, err := NewClient(srv.URL, time.Second).FetchReport(context.Background(), ReportQuery{ProjectID: 1, Date: reportDate()})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), "status %d", tt.status)
		assert.Equal(t, tt.code, apiErr.Code)
		assert.Equal(t, tt.status, apiErr.StatusCode)
	}
}

func TestFetchReportValidatesQuery(t *testing.T) {
	c := NewClient("http://unused", time.Second)
	_, err := c.FetchReport(context.Background(), ReportQuery{Date: reportDate()})
	assert.Error(t, err)
	_, err = c.FetchReport(context.Background(), ReportQuery{ProjectID: 1})
	assert.Error(t, err)
}

func TestFetchReportMissingBaseURL(t *testing.T) {
	_, err := NewClient("", time.Second).FetchReport(context.Background(), ReportQuery{ProjectID: 1, Date: reportDate()})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "MISSING_BASE_URL", apiErr.Code)
}

func TestFetchReportUsesCache(t *testing.T) {
	var hits int32
	srv := upstream(t, http.StatusOK, reportBody, &hits)
	cache := NewResponseCache[[]model.RawPeriodRecord](time.Minute, 0)
	c := NewClient(srv.URL, time.Second, WithCache(cache))

	q := ReportQuery{ProjectID: 7, Date: reportDate()}
	for i := 0; i < 3; i++ {
		recs, err := c.FetchReport(context.Background(), q)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err := c.FetchReport(context.Background(), ReportQuery{ProjectID: 8, Date: reportDate()})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetchReportCancelledContext(t *testing.T) {
	srv := upstream(t, http.StatusOK, reportBody, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, time.Second).FetchReport(ctx, ReportQuery{ProjectID: 1, Date: reportDate()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchReportSharedRequestOutlivesCancelledCaller(t *testing.T) {
	var hits int32
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		arrived <- struct{}{}
		<-release
		_, _ = w.Write([]byte(reportBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	q := ReportQuery{ProjectID: 3, Date: reportDate()}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.FetchReport(ctxA, q)
		errA <- err
	}()
	<-arrived

	type result struct {
		recs []model.RawPeriodRecord
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		recs, err := c.FetchReport(context.Background(), q)
		resB <- result{recs, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Len(t, b.recs, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSearchProjects(t *testing.T) {
	var status, search string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status = r.URL.Query().Get("iStatus")
		search = r.URL.Query().Get("sSearch")
		_, _ = w.Write([]byte(`{"ResultData":"[{\"iId\":5,\"sName\":\"Bridge\",\"sCode\":\"BR-1\"}]"}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).SearchProjects(context.Background(), "bri")
	require.NoError(t, err)
	assert.Equal(t, "3", status)
	assert.Equal(t, "bri", search)
	assert.Equal(t, []model.Project{{ID: 5, Name: "Bridge", Code: "BR-1"}}, got)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}
