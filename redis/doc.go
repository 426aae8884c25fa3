// Package redis wraps go-redis with stenopro logging, configuration and
// component lifecycle, and provides the lease-based distributed lock that
// keeps a transcription to one pipeline run across replicas.
//
//	locker := redis.NewLocker(client, 30*time.Second)
//	lease, err := locker.TryLock(ctx, "run:7")
//	if errors.Is(err, redis.ErrLocked) { ... }
//	defer lease.Release(context.Background())
package redis
