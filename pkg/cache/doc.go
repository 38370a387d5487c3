// Package cache provides LocalCache, a concurrent in-process cache with
// absolute and sliding expiration and a soft, adaptively growing capacity.
//
// There is no background janitor: expired entries are dropped when a read
// finds them or when the capacity check that follows each write sweeps them.
// When sweeping is not enough the cache doubles its capacity while its grow
// budget lasts, then starts evicting the entries with the fewest accesses and
// the oldest touch, where a slow to produce entry counts as touched later.
//
// A minimal use:
//
//	users, err := cache.New(
//		cache.WithCapacity[int, *User](1024),
//		cache.WithTimeToLive[int, *User](10*time.Minute),
//		cache.WithFactory(loadUser),
//	)
//	if err != nil {
//		return err
//	}
//
//	user, err := users.Get(42, nil)
package cache
