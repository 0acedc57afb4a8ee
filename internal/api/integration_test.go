package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamelearn/analytics/internal/api"
	"github.com/gamelearn/analytics/internal/embed"
	"github.com/gamelearn/analytics/internal/export"
	"github.com/gamelearn/analytics/internal/models"
	"github.com/gamelearn/analytics/internal/testutil"
	"github.com/gamelearn/analytics/pkg/client"
	"github.com/gamelearn/analytics/pkg/filters"
)

// startAPI wires a full server (auth, rate limit, decompression) against the
// container-backed environment. The Metabase signer is left unconfigured on
// purpose so the 503 path stays reachable.
func startAPI(t *testing.T, env *testutil.TestEnvironment) *testutil.TestServer {
	t.Helper()

	posthog := embed.NewPostHogSigner(embed.PostHogConfig{
		Host:         "https://posthog.test",
		ProjectID:    "123",
		SharedSecret: "test-secret",
	})
	metabase := embed.NewMetabaseSigner(embed.MetabaseConfig{})

	server := api.NewServer(env.DB, env.Artifacts, posthog, metabase, "test")
	return testutil.StartTestServer(t, env, server.SetupRoutes(nil))
}

func apiClient(t *testing.T, baseURL, key string, opts func(*client.Options)) *client.Client {
	t.Helper()
	o := client.Options{
		BaseURL:            baseURL,
		APIKey:             key,
		ExportPollInterval: 100 * time.Millisecond,
		ExportMaxAttempts:  100,
		OpenURL:            func(string) error { return nil },
	}
	if opts != nil {
		opts(&o)
	}
	c, err := client.New(o)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return c
}

func postJSON(t *testing.T, key, url string, body, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := testutil.SetupTestEnvironment(t)
	ts := startAPI(t, env)
	key := testutil.CreateTestAPIKey(t, env, "inst-1")

	t.Run("rejects missing and bogus keys", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/export/jobs")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("no key: status = %d, want 401", resp.StatusCode)
		}

		bad := apiClient(t, ts.URL, "glk_definitely_wrong", nil)
		if _, err := bad.ListExportJobs(context.Background()); !errors.Is(err, client.ErrUnauthorized) {
			t.Errorf("bogus key: err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("posthog embed mints then serves from cache", func(t *testing.T) {
		c := apiClient(t, ts.URL, key, nil)
		req := client.EmbedRequest{
			Provider:  filters.PostHog,
			InsightID: "ins-42",
			Filters:   map[string]any{"course_ids": []any{"c1"}},
		}

		first, err := c.MintEmbed(context.Background(), req)
		if err != nil {
			t.Fatalf("first mint: %v", err)
		}
		if first.Cached || !strings.Contains(first.URL, "posthog.test") {
			t.Errorf("first mint = %+v", first)
		}

		second, err := c.MintEmbed(context.Background(), req)
		if err != nil {
			t.Fatalf("second mint: %v", err)
		}
		if !second.Cached || second.URL != first.URL {
			t.Errorf("second mint = %+v, want cached copy of first", second)
		}
	})

	t.Run("unconfigured metabase reports 503", func(t *testing.T) {
		c := apiClient(t, ts.URL, key, nil)
		_, err := c.MintEmbed(context.Background(), client.EmbedRequest{
			Provider:    filters.Metabase,
			DashboardID: "7",
		})
		if !errors.Is(err, client.ErrNotConfigured) {
			t.Errorf("err = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("export runs end to end through the worker", func(t *testing.T) {
		env.CleanDB(t)
		courseID := testutil.CreateTestCourse(t, env, "inst-1", "Go Basics", false)
		testutil.CreateTestPayment(t, env, courseID, models.PaymentSucceeded, decimal.NewFromFloat(49.99))

		manager := export.NewManager(env.DB, env.Artifacts, export.Config{
			PollInterval:       100 * time.Millisecond,
			MaxJobs:            5,
			StaleAfter:         time.Minute,
			SessionIdleTimeout: time.Hour,
		})
		workerCtx, stopWorker := context.WithCancel(context.Background())
		defer stopWorker()
		go manager.Run(workerCtx)

		opens := 0
		c := apiClient(t, ts.URL, key, func(o *client.Options) {
			o.OpenURL = func(url string) error {
				opens++
				if url == "" {
					t.Error("opened an empty download URL")
				}
				return nil
			}
		})

		jobID, err := c.StartExport(context.Background(), client.ExportOptions{
			Type:   models.ExportTypeRevenue,
			Format: models.FormatCSV,
		})
		if err != nil {
			t.Fatalf("StartExport: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		job, err := c.WaitForExport(ctx, jobID)
		if err != nil {
			t.Fatalf("WaitForExport: %v", err)
		}
		if job.Status != models.JobStatusCompleted || job.DownloadURL == "" {
			t.Fatalf("job = %+v, want completed with download URL", job)
		}
		if opens != 1 {
			t.Errorf("download opened %d times, want exactly 1", opens)
		}

		jobs, err := c.ListExportJobs(context.Background())
		if err != nil {
			t.Fatalf("ListExportJobs: %v", err)
		}
		if len(jobs) != 1 || jobs[0].ID != jobID {
			t.Errorf("jobs = %+v", jobs)
		}

		if err := c.DeleteExportJob(context.Background(), jobID); err != nil {
			t.Fatalf("DeleteExportJob: %v", err)
		}
		if _, err := c.GetExportJob(context.Background(), jobID); err == nil {
			t.Error("job still readable after delete")
		}
	})

	t.Run("payment status lookup", func(t *testing.T) {
		env.CleanDB(t)
		courseID := testutil.CreateTestCourse(t, env, "inst-1", "Go Basics", false)
		paymentID := testutil.CreateTestPayment(t, env, courseID, models.PaymentSucceeded, decimal.NewFromFloat(19.00))

		c := apiClient(t, ts.URL, key, nil)
		data, err := c.GetPaymentStatus(context.Background(), paymentID)
		if err != nil {
			t.Fatalf("GetPaymentStatus: %v", err)
		}
		if data.Status != models.PaymentSucceeded {
			t.Errorf("status = %q, want succeeded", data.Status)
		}

		// A payment whose webhook has not landed yet is a 404, not an error
		// payload.
		_, err = c.GetPaymentStatus(context.Background(), "pay-nope")
		var se *client.StatusError
		if !errors.As(err, &se) || se.Code != http.StatusNotFound {
			t.Errorf("unknown payment: err = %v, want 404 StatusError", err)
		}
	})

	t.Run("session close is first-wins over HTTP", func(t *testing.T) {
		env.CleanDB(t)

		var opened models.OpenSessionResponse
		status := postJSON(t, key, ts.URL+"/api/sessions",
			models.OpenSessionRequest{SubjectID: "student-1"}, &opened)
		if status != http.StatusCreated || opened.SessionID == "" {
			t.Fatalf("open: status = %d, resp = %+v", status, opened)
		}

		activityURL := fmt.Sprintf("%s/api/sessions/%s/activity", ts.URL, opened.SessionID)
		if status := postJSON(t, key, activityURL, struct{}{}, nil); status != http.StatusOK {
			t.Fatalf("activity: status = %d", status)
		}

		closeURL := fmt.Sprintf("%s/api/sessions/%s/close", ts.URL, opened.SessionID)
		var closed map[string]any
		if status := postJSON(t, key, closeURL,
			models.CloseSessionRequest{DurationSeconds: 90, Reason: "unmount"}, &closed); status != http.StatusOK {
			t.Fatalf("close: status = %d", status)
		}

		// The duplicate close from an unload handler succeeds without
		// overwriting anything.
		var again map[string]any
		if status := postJSON(t, key, closeURL,
			models.CloseSessionRequest{DurationSeconds: 500, Reason: "unload"}, &again); status != http.StatusOK {
			t.Fatalf("second close: status = %d", status)
		}
		if again["alreadyClosed"] != true {
			t.Errorf("second close resp = %+v, want alreadyClosed", again)
		}

		record, err := env.DB.GetSession(env.Ctx, opened.SessionID)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if record.DurationSeconds == nil || *record.DurationSeconds != 90 {
			t.Errorf("duration = %v, want the first close's 90", record.DurationSeconds)
		}

		if status := postJSON(t, key, activityURL, struct{}{}, &closed); status != http.StatusOK {
			t.Fatalf("activity after close: status = %d", status)
		}
		if closed["closed"] != true {
			t.Errorf("activity after close resp = %+v, want closed flag", closed)
		}
	})
}
