package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBowlWeightParsing(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"500", 500},
		{"0", 0},
		{"", 0},
		{"garbage", 0},
		{"-12", 0},
	}
	for _, tt := range tests {
		d := FeederDetail{Weight: tt.raw}
		if got := d.BowlWeight(); got != tt.want {
			t.Errorf("BowlWeight(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestDetailError(t *testing.T) {
	d := FeederDetail{ErrorType: "NONE", ErrorMessage: "stale"}
	if d.Error() != "" {
		t.Errorf("expected no error for type NONE, got %q", d.Error())
	}
	d = FeederDetail{ErrorType: "GRAIN_JAM", ErrorMessage: "food outlet blocked"}
	if d.Error() != "food outlet blocked" {
		t.Errorf("unexpected error: %q", d.Error())
	}
}

func TestFetchFeederDetail(t *testing.T) {
	var gotToken, gotDevice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token/device/feederpro/detail" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotToken = r.Header.Get("token")
		gotDevice = r.URL.Query().Get("deviceId")
		json.NewEncoder(w).Encode(map[string]any{
			"returnCode": 0,
			"data": map[string]any{
				"deviceInfo": map[string]any{
					"weight":          "480",
					"totalFoodIntake": "32",
					"online":          true,
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	detail, err := c.FetchFeederDetail(context.Background(), "feeder-1")
	if err != nil {
		t.Fatalf("FetchFeederDetail: %v", err)
	}

	if gotToken != "secret" {
		t.Errorf("token header: got %q", gotToken)
	}
	if gotDevice != "feeder-1" {
		t.Errorf("deviceId param: got %q", gotDevice)
	}
	if detail.BowlWeight() != 480 {
		t.Errorf("weight: got %d, want 480", detail.BowlWeight())
	}
	if detail.ReportedIntake() != 32 {
		t.Errorf("intake: got %d, want 32", detail.ReportedIntake())
	}
	if !detail.Online {
		t.Error("expected online")
	}
}

func TestFetchFeederDetailAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"returnCode": 1002,
			"msg":        "token expired",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "stale")
	if _, err := c.FetchFeederDetail(context.Background(), "feeder-1"); err == nil {
		t.Fatal("expected error for non-zero returnCode")
	}
}

func TestSwitchModePostsBody(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{"returnCode": 0})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	if err := c.SwitchMode(context.Background(), "feeder-1", "00", 2); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if body["feederproRunMode"] != "00" {
		t.Errorf("mode: got %v", body["feederproRunMode"])
	}
	if body["foodOutCount"] != float64(2) {
		t.Errorf("foodOutCount: got %v", body["foodOutCount"])
	}
}

func TestFakeSourceQueue(t *testing.T) {
	f := NewFakeSource()
	f.QueueDetail("d1", FeederDetail{Weight: "500"})
	f.QueueDetail("d1", FeederDetail{Weight: "490"})

	ctx := context.Background()
	d, _ := f.FetchFeederDetail(ctx, "d1")
	if d.BowlWeight() != 500 {
		t.Errorf("first: got %d", d.BowlWeight())
	}
	d, _ = f.FetchFeederDetail(ctx, "d1")
	if d.BowlWeight() != 490 {
		t.Errorf("second: got %d", d.BowlWeight())
	}
	// Last entry repeats.
	d, _ = f.FetchFeederDetail(ctx, "d1")
	if d.BowlWeight() != 490 {
		t.Errorf("repeat: got %d", d.BowlWeight())
	}
}
