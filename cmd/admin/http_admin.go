package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
)

// Both commands talk to the server's loopback-only admin endpoints.

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	viewer := fs.String("viewer", "", "player whose view to fetch (empty: public view)")
	raw := fs.Bool("raw", false, "print the state JSON instead of a summary")
	_ = fs.Parse(args)

	q := url.Values{}
	if v := strings.TrimSpace(*viewer); v != "" {
		q.Set("viewer", v)
	}
	body := adminRequest(http.MethodGet, *baseURL, "/admin/v1/state", q, 5*time.Second)
	if *raw {
		fmt.Println(string(body))
		return
	}
	var st game.State
	check("decode state", json.Unmarshal(body, &st))
	fmt.Printf("game=%s version=%d phase=%s turn=%d holder=%s rolled=%v\n",
		st.GameID, st.Version, st.Phase, st.Turn.Number, st.Turn.Holder, st.Turn.Rolled)
	for _, p := range st.Players {
		fmt.Printf("  %-8s cards=%d devcards=%d knights=%d vp=%d connected=%v\n",
			p.ID, p.HandCount, p.CardCount, p.Knights, p.VP.Public(), p.Connected)
	}
	for _, o := range st.Offers {
		printJSON(o)
	}
}

func snapshotNowCmd(args []string) {
	fs := flag.NewFlagSet("snapshot-now", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	fmt.Println(string(adminRequest(http.MethodPost, *baseURL, "/admin/v1/snapshot", nil, 10*time.Second)))
}

// adminRequest exits on transport errors and non-2xx responses.
func adminRequest(method, baseURL, path string, q url.Values, timeout time.Duration) []byte {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequest(method, u, nil)
	check("request", err)
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	check("request", err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	check("read response", err)
	if resp.StatusCode/100 != 2 {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n%s\n", method, path, resp.Status, strings.TrimSpace(string(b)))
		os.Exit(1)
	}
	return b
}
