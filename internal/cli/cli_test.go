package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/fluxi/internal/config"
	"github.com/rshade/fluxi/internal/engine"
)

// testEnv isolates one CLI test: its own config dir, ledger file and
// file-backed cache shared across invocations.
type testEnv struct {
	home     string
	dataFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("FLUXI_HOME", home)
	for _, k := range []string{
		"FLUXI_CACHE_BACKEND", "FLUXI_CACHE_TTL", "FLUXI_CACHE_DIR", "FLUXI_CACHE_PREFIX",
		"FLUXI_CACHE_SINGLEFLIGHT", "FLUXI_REDIS_ADDR", "FLUXI_REDIS_PASSWORD",
		"FLUXI_LOG_LEVEL", "FLUXI_LOG_FILE", "FLUXI_DATA_FILE",
	} {
		t.Setenv(k, "")
	}
	t.Cleanup(config.ResetGlobalConfigForTest)
	return &testEnv{home: home, dataFile: filepath.Join(home, "ledger.json")}
}

// run executes one fluxi invocation and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	full := append([]string{"--data-file", e.dataFile}, args...)
	cmd := NewRootCmdWithArgs("test", full, func(string) (string, bool) { return "", false })

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustRun executes an invocation that is expected to succeed.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	require.NoError(t, err, "fluxi %s: %s", strings.Join(args, " "), stderr)
	return out
}

// createdID extracts the id from "Recorded <type> <id>" or "Created goal <id> (...)".
func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	switch {
	case len(fields) >= 3 && fields[0] == "Recorded":
		return fields[2]
	case len(fields) >= 3 && fields[0] == "Created":
		return fields[2]
	}
	t.Fatalf("no id in %q", out)
	return ""
}

// categoryID looks up a seeded category id by name.
func categoryID(t *testing.T, e *testEnv, name string) string {
	t.Helper()
	out := e.mustRun(t, "tx", "categories")
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[2] == name {
			return fields[0]
		}
	}
	t.Fatalf("category %q not in %q", name, out)
	return ""
}

func TestCacheGroupsCmd(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "cache", "groups")
	assert.Contains(t, out, "transaction")
	assert.Contains(t, out, "goal")
	assert.Contains(t, out, "profile")
	assert.Contains(t, out, "financial_summary")
	assert.Contains(t, out, "goals_active")
	assert.Contains(t, out, "user_profile")
}

func TestCacheSetGetClear(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "cache", "set", "limits", `{"daily":50}`, "--ttl", "10m")
	assert.Equal(t, "Stored limits (ttl 10m)\n", out)

	out = e.mustRun(t, "cache", "get", "limits")
	assert.JSONEq(t, `{"daily":50}`, out)

	out = e.mustRun(t, "cache", "clear", "limits", "other")
	assert.Equal(t, "Cleared 2 key(s)\n", out)

	_, _, err := e.run(t, "cache", "get", "limits")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheSetErrors(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.run(t, "cache", "set", "k", "{not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")

	_, _, err = e.run(t, "cache", "set", "k", "1", "--ttl", "soon")
	require.Error(t, err)
}

func TestCacheGetMiss(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.run(t, "cache", "get", "financial_summary")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheExpiredEntry(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun(t, "cache", "set", "k", `"v"`, "--ttl", "1ms")
	_, _, err := e.run(t, "--metrics", "cache", "get", "k")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheStatCmd(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun(t, "cache", "set", "limits", `{"daily":50}`, "--ttl", "90s")
	out := e.mustRun(t, "cache", "stat", "limits")
	assert.Contains(t, out, "Key:       limits")
	assert.Contains(t, out, "TTL:       1m30s")
	assert.Contains(t, out, "Size:      12 bytes")

	_, _, err := e.run(t, "cache", "stat", "absent")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheInfoCmd(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun(t, "cache", "set", "a", "1")
	e.mustRun(t, "cache", "set", "b", "2")

	out := e.mustRun(t, "cache", "info")
	assert.Contains(t, out, "Backend:     file")
	assert.Contains(t, out, "Default TTL: 5m")
	assert.Contains(t, out, "Entries:     2")
	assert.Contains(t, out, "Directory:   "+filepath.Join(e.home, "cache"))
	assert.NotContains(t, out, "Disk usage:  0 bytes")

	out = e.mustRun(t, "--cache-backend", "memory", "cache", "info")
	assert.Contains(t, out, "Entries:     0")
	assert.NotContains(t, out, "Directory:")
}

func TestRedisBackendUnreachable(t *testing.T) {
	e := newTestEnv(t)
	t.Setenv("FLUXI_REDIS_ADDR", "127.0.0.1:1")

	_, _, err := e.run(t, "--cache-backend", "redis", "cache", "groups")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to redis at 127.0.0.1:1")
}

func TestCacheClearAll(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun(t, "cache", "set", "a", "1")
	e.mustRun(t, "cache", "set", "b", "2")

	out := e.mustRun(t, "cache", "clear-all")
	assert.Equal(t, "Cleared all entries under \"fluxi_cache_\"\n", out)

	for _, key := range []string{"a", "b"} {
		_, _, err := e.run(t, "cache", "get", key)
		require.ErrorIs(t, err, ErrCacheMiss)
	}
}

func TestCacheInvalidateCmd(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun(t, "cache", "set", "goals_active", "[]")
	e.mustRun(t, "cache", "set", "user_profile", `{"full_name":"A"}`)

	out := e.mustRun(t, "cache", "invalidate", "goal")
	assert.Contains(t, out, "Invalidated goal:")
	assert.Contains(t, out, "goals_active")

	_, _, err := e.run(t, "cache", "get", "goals_active")
	require.ErrorIs(t, err, ErrCacheMiss)
	e.mustRun(t, "cache", "get", "user_profile")

	_, _, err = e.run(t, "cache", "invalidate", "budget")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown group "budget"`)
}

func TestCacheDisabled(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.run(t, "--cache-backend", "none", "cache", "get", "financial_summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache is disabled")

	e.mustRun(t, "--cache-backend", "none", "tx", "add", "-t", "income", "-a", "100")
	out := e.mustRun(t, "--cache-backend", "none", "summary")
	assert.Contains(t, out, "Balance:       100.00")
}

func TestInvalidBackendFlag(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.run(t, "--cache-backend", "memcached", "cache", "groups")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSummaryIsCachedAndInvalidated(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun(t, "tx", "add", "--type", "income", "--amount", "3200", "--description", "Salary")
	e.mustRun(t, "tx", "add", "-t", "expense", "-a", "42.90", "-d", "Groceries",
		"--category", categoryID(t, e, "Food"))

	out := e.mustRun(t, "summary")
	assert.Contains(t, out, "FINANCIAL SUMMARY")
	assert.Contains(t, out, "Income:        3,200.00")
	assert.Contains(t, out, "Expenses:      42.90")
	assert.Contains(t, out, "Balance:       3,157.10")
	assert.Contains(t, out, "Transactions:  2")

	raw := e.mustRun(t, "cache", "get", "financial_summary")
	var s engine.Summary
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.InDelta(t, 3157.10, s.Balance, 0.001)

	_, stderr, err := e.run(t, "--metrics", "summary")
	require.NoError(t, err)
	assert.Contains(t, stderr, "fluxi_cache_hits_total 1")

	e.mustRun(t, "tx", "add", "-t", "expense", "-a", "7.10")
	_, _, err = e.run(t, "cache", "get", "financial_summary")
	require.ErrorIs(t, err, ErrCacheMiss)

	out = e.mustRun(t, "summary")
	assert.Contains(t, out, "Balance:       3,150.00")
}

func TestTxCommands(t *testing.T) {
	e := newTestEnv(t)

	id := createdID(t, e.mustRun(t, "tx", "add", "-t", "expense", "-a", "18.50", "-d", "Lunch", "--date", "2025-03-07"))
	e.mustRun(t, "tx", "add", "-t", "income", "-a", "500", "-d", "Bonus", "--date", "2025-03-01")

	out := e.mustRun(t, "tx", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], id)
	assert.Contains(t, lines[0], "Lunch")

	out = e.mustRun(t, "tx", "list", "--type", "income")
	assert.Contains(t, out, "Bonus")
	assert.NotContains(t, out, "Lunch")

	out = e.mustRun(t, "tx", "update", id, "--amount", "20.75")
	assert.Equal(t, "Updated "+id+"\n", out)
	assert.Contains(t, e.mustRun(t, "tx", "list", "--asc", "-n", "5"), "20.75")

	out = e.mustRun(t, "tx", "delete", id)
	assert.Equal(t, "Deleted "+id+"\n", out)

	_, _, err := e.run(t, "tx", "delete", id)
	require.ErrorIs(t, err, engine.ErrNotFound)

	_, _, err = e.run(t, "tx", "add", "-t", "transfer", "-a", "10")
	require.Error(t, err)

	_, _, err = e.run(t, "tx", "add", "-t", "income")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestTxByCategoryCmd(t *testing.T) {
	e := newTestEnv(t)

	food := categoryID(t, e, "Food")
	e.mustRun(t, "tx", "add", "-t", "expense", "-a", "30", "--category", food)
	e.mustRun(t, "tx", "add", "-t", "expense", "-a", "12.5", "--category", food)

	out := e.mustRun(t, "tx", "by-category")
	assert.Contains(t, out, "EXPENSES BY CATEGORY")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "42.50")
	assert.Contains(t, out, "(2)")
}

func TestFirstRunCategoryIDsAreStable(t *testing.T) {
	e := newTestEnv(t)

	first := categoryID(t, e, "Food")
	assert.Equal(t, first, categoryID(t, e, "Food"))

	out := e.mustRun(t, "tx", "add", "-t", "expense", "-a", "9.99", "--category", first)
	assert.True(t, strings.HasPrefix(out, "Recorded expense "))
}

func TestTxCategoriesCmd(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "tx", "categories", "--type", "income")
	assert.Contains(t, out, "Salary")
	assert.NotContains(t, out, "Food")
}

func TestGoalCommands(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun(t, "tx", "add", "-t", "income", "-a", "1000")
	id := createdID(t, e.mustRun(t, "goal", "add", "--name", "Trip", "--target", "500"))

	out := e.mustRun(t, "goal", "deposit", id, "200")
	assert.Equal(t, "Trip: 200.00 / 500.00 (active)\n", out)

	out = e.mustRun(t, "summary")
	assert.Contains(t, out, "In goals:      200.00")
	assert.Contains(t, out, "Available:     800.00")

	_, _, err := e.run(t, "goal", "deposit", id, "900")
	require.ErrorIs(t, err, engine.ErrInsufficientBalance)

	out = e.mustRun(t, "goal", "deposit", id, "300")
	assert.Equal(t, "Trip: 500.00 / 500.00 (completed)\n", out)

	out = e.mustRun(t, "goal", "list")
	assert.Equal(t, "No goals.\n", out)
	out = e.mustRun(t, "goal", "list", "--status", "completed")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "100.0%")

	out = e.mustRun(t, "goal", "withdraw", id)
	assert.Equal(t, "Trip: 0.00 / 500.00 (active)\n", out)

	_, _, err = e.run(t, "goal", "withdraw", id, "1")
	require.ErrorIs(t, err, engine.ErrInsufficientGoalFunds)

	_, _, err = e.run(t, "goal", "deposit", id, "abc")
	require.ErrorIs(t, err, engine.ErrInvalidAmount)

	out = e.mustRun(t, "goal", "update", id, "--status", "cancelled")
	assert.Equal(t, "Updated goal "+id+" (cancelled)\n", out)
	assert.Contains(t, e.mustRun(t, "goal", "list", "--status", "all"), "Trip")

	out = e.mustRun(t, "goal", "delete", id)
	assert.Equal(t, "Deleted goal "+id+"\n", out)
}

func TestGoalListIsInvalidatedByDeposit(t *testing.T) {
	e := newTestEnv(t)

	e.mustRun(t, "tx", "add", "-t", "income", "-a", "100")
	id := createdID(t, e.mustRun(t, "goal", "add", "--name", "Bike", "--target", "80"))

	assert.Contains(t, e.mustRun(t, "goal", "list"), "0.00 / 80.00")
	e.mustRun(t, "cache", "get", "goals_active")

	e.mustRun(t, "goal", "deposit", id, "40")
	_, _, err := e.run(t, "cache", "get", "goals_active")
	require.ErrorIs(t, err, ErrCacheMiss)
	assert.Contains(t, e.mustRun(t, "goal", "list"), "40.00 / 80.00")

	_, _, err = e.run(t, "goal", "delete", id)
	require.ErrorIs(t, err, engine.ErrGoalHasFunds)
	e.mustRun(t, "cache", "get", "goals_active")
}

func TestProfileCommands(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "profile", "show")
	assert.Contains(t, out, "PROFILE")
	assert.Contains(t, out, "Name:    Fluxi User")
	e.mustRun(t, "cache", "get", "user_profile")

	out = e.mustRun(t, "profile", "update", "--name", "Ada Lovelace", "--avatar", "https://example.com/ada.png")
	assert.Equal(t, "Updated profile Ada Lovelace\n", out)

	_, _, err := e.run(t, "cache", "get", "user_profile")
	require.ErrorIs(t, err, ErrCacheMiss)

	out = e.mustRun(t, "profile", "show")
	assert.Contains(t, out, "Name:    Ada Lovelace")
	assert.Contains(t, out, "Avatar:  https://example.com/ada.png")

	_, _, err = e.run(t, "profile", "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestDashboardCmd(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "dashboard")
	assert.Contains(t, out, "FINANCIAL SUMMARY")
	assert.Contains(t, out, "No transactions.")
	assert.Contains(t, out, "LAST 7 DAYS")
	assert.Contains(t, out, "No active goals.")

	e.mustRun(t, "tx", "add", "-t", "income", "-a", "250", "-d", "Gift")
	e.mustRun(t, "goal", "add", "--name", "Laptop", "--target", "1200", "--deadline", "2099-01-01")

	out = e.mustRun(t, "dashboard")
	assert.Contains(t, out, "RECENT TRANSACTIONS")
	assert.Contains(t, out, "Gift")
	assert.Contains(t, out, "Laptop")

	for _, key := range []string{"financial_summary", "recent_transactions", "expenses_chart", "next_goal"} {
		e.mustRun(t, "cache", "get", key)
	}
}

func TestRootHelp(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "--help")
	assert.Contains(t, out, "fluxi")
	assert.Contains(t, out, "cache")
	assert.Contains(t, out, "dashboard")
}
