package main

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestExtractContent_RoutesTweets(t *testing.T) {
	newTweetAPIServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":200,"tweet":{"text":"routed","author":{"screen_name":"alice"}}}`)
	}))

	doc, err := extractContent("https://x.com/alice/status/42", 5*time.Second, defaultUA)
	if err != nil {
		t.Fatal(err)
	}
	if doc.SiteName != "Twitter" {
		t.Errorf("tweet URL should route to the tweet extractor, got site %q", doc.SiteName)
	}
}

func TestExtractContent_RoutesArticles(t *testing.T) {
	t.Setenv("BINDERY_TEST_ALLOW_LOCAL", "1")

	// A non-tweet URL goes through the web article path; an unreachable
	// host surfaces as a fetch error from that extractor.
	_, err := extractContent("http://127.0.0.1:1/article", 500*time.Millisecond, defaultUA)
	if err == nil {
		t.Fatal("expected fetch error")
	}
}
