package cache

import (
	"errors"
	"testing"
)

func TestGetMemoizesPerStamp(t *testing.T) {
	c := New()
	calls := 0
	gen := func() (Data, Stamp, error) {
		calls++
		return calls, 1, nil
	}
	for i := 0; i < 3; i++ {
		data, err := c.Get("k", 1, gen)
		if err != nil || data != 1 {
			t.Fatalf("data %v, err %v", data, err)
		}
	}
	if calls != 1 {
		t.Errorf("generated %d times", calls)
	}
}

func TestGetRegeneratesOnNewStamp(t *testing.T) {
	c := New()
	calls := 0
	c.Get("k", 1, func() (Data, Stamp, error) { calls++; return calls, 1, nil })
	data, _ := c.Get("k", 2, func() (Data, Stamp, error) { calls++; return calls, 2, nil })
	if data != 2 || calls != 2 {
		t.Errorf("data %v, calls %d", data, calls)
	}
}

func TestGetRetriesAfterError(t *testing.T) {
	c := New()
	fail := errors.New("fail")
	if _, err := c.Get("k", 1, func() (Data, Stamp, error) { return nil, nil, fail }); err != fail {
		t.Fatalf("err %v", err)
	}
	data, err := c.Get("k", 1, func() (Data, Stamp, error) { return "ok", 1, nil })
	if err != nil || data != "ok" {
		t.Errorf("data %v, err %v", data, err)
	}
}
