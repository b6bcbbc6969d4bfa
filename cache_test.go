// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package surrealair

import (
	"fmt"
	"sync"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/surrealair/internal/expr"
)

// Hook up gocheck into the "go test" runner.
func TestPackage(t *testing.T) { TestingT(t) }

type CacheSuite struct{}

var _ = Suite(&CacheSuite{})

func (s *CacheSuite) SetUpTest(c *C) {
	ResetCache(DefaultCacheSize)
}

func (s *CacheSuite) TearDownSuite(c *C) {
	ResetCache(DefaultCacheSize)
}

func (s *CacheSuite) TestCompiledStatementReuse(c *C) {
	src := "SELECT * FROM person WHERE age > 18;"
	first, err := Compile(src)
	c.Assert(err, IsNil)
	c.Check(CacheLen(), Equals, 1)

	second, err := Compile(src)
	c.Assert(err, IsNil)
	c.Check(second, Equals, first)
	c.Check(CacheLen(), Equals, 1)

	other, err := Compile("SELECT * FROM person WHERE age > 21;")
	c.Assert(err, IsNil)
	c.Check(other, Not(Equals), first)
	c.Check(CacheLen(), Equals, 2)
}

func (s *CacheSuite) TestFailedCompileNotCached(c *C) {
	_, err := Compile("let = 1;")
	c.Assert(err, NotNil)
	c.Check(CacheLen(), Equals, 0)
}

func (s *CacheSuite) TestNameGeneratorBypassesCache(c *C) {
	src := "SELECT * FROM person;"
	first, err := Compile(src, WithNameGenerator(expr.NewCounter()))
	c.Assert(err, IsNil)
	second, err := Compile(src, WithNameGenerator(expr.NewCounter()))
	c.Assert(err, IsNil)
	c.Check(second, Not(Equals), first)
	c.Check(second.Slots(), DeepEquals, first.Slots())
	c.Check(CacheLen(), Equals, 0)
}

func (s *CacheSuite) TestEviction(c *C) {
	c.Assert(SetCacheSize(2), IsNil)
	a := MustCompile("RETURN 1;")
	MustCompile("RETURN 2;")
	MustCompile("RETURN 3;")
	c.Check(CacheLen(), Equals, 2)

	// The least recently used statement was evicted.
	c.Check(MustCompile("RETURN 1;"), Not(Equals), a)
}

func (s *CacheSuite) TestResizeKeepsRecent(c *C) {
	MustCompile("RETURN 1;")
	MustCompile("RETURN 2;")
	recent := MustCompile("RETURN 3;")
	c.Assert(SetCacheSize(1), IsNil)
	c.Check(CacheLen(), Equals, 1)
	c.Check(MustCompile("RETURN 3;"), Equals, recent)
}

func (s *CacheSuite) TestDisabled(c *C) {
	c.Assert(SetCacheSize(0), IsNil)
	first := MustCompile("RETURN 1;")
	c.Check(MustCompile("RETURN 1;"), Not(Equals), first)
	c.Check(CacheLen(), Equals, 0)

	c.Check(SetCacheSize(-1), ErrorMatches, "cannot resize statement cache: negative size -1")
}

func (s *CacheSuite) TestConcurrentCompile(c *C) {
	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				stmt, err := Compile(fmt.Sprintf("SELECT * FROM person LIMIT %d;", j%10))
				if err != nil {
					results[i] = append(results[i], err.Error())
					continue
				}
				results[i] = append(results[i], stmt.Query())
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		c.Check(r, DeepEquals, results[0])
	}
	c.Check(CacheLen(), Equals, 10)
}
