package surrealair

func CacheLen() int {
	return stmtCache.len()
}

func ResetCache(size int) {
	if err := stmtCache.resize(0); err != nil {
		panic(err)
	}
	if err := stmtCache.resize(size); err != nil {
		panic(err)
	}
}
