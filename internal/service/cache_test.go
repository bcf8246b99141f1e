package service

import (
	"testing"

	"github.com/signalsfoundry/emfield/core"
)

func TestResultCache_EvictsOldestBeyondCapacity(t *testing.T) {
	c := newResultCache(2)
	c.Put("a", &core.Result{})
	c.Put("b", &core.Result{})
	c.Put("c", &core.Result{})

	if _, ok := c.Get("a"); ok {
		t.Errorf("oldest job should have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Errorf("job b should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Errorf("job c should survive")
	}
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
}

func TestResultCache_EmptyIDResolvesToMostRecent(t *testing.T) {
	c := newResultCache(2)
	first := &core.Result{}
	second := &core.Result{}
	c.Put("a", first)
	c.Put("b", second)

	res, ok := c.Get("")
	if !ok || res != second {
		t.Errorf("empty job ID should resolve to the most recent result")
	}
}

func TestResultCache_EmptyCacheMisses(t *testing.T) {
	c := newResultCache(2)
	if _, ok := c.Get(""); ok {
		t.Errorf("empty cache must miss")
	}
}

func TestResultCache_OverwriteDoesNotGrow(t *testing.T) {
	c := newResultCache(2)
	c.Put("a", &core.Result{})
	c.Put("a", &core.Result{})
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestResultCache_MinimumCapacityIsOne(t *testing.T) {
	c := newResultCache(0)
	c.Put("a", &core.Result{})
	c.Put("b", &core.Result{})
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
	if _, ok := c.Get("b"); !ok {
		t.Errorf("latest job should survive")
	}
}
