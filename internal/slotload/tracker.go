// Package slotload records the made-to-order units committed to each pickup
// slot per day in Redis.
package slotload

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "slotload:"
	keyTTL    = 36 * time.Hour
)

// reserveScript increments the slot counter only while it stays within capacity.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local units = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call('GET', key) or '0')
if current + units > capacity then
	return 0
end

redis.call('INCRBY', key, units)
redis.call('EXPIRE', key, ttl)
return 1
`)

// releaseScript decrements the slot counter without going below zero.
var releaseScript = redis.NewScript(`
local key = KEYS[1]
local units = tonumber(ARGV[1])

local current = tonumber(redis.call('GET', key) or '0')
local next = current - units
if next <= 0 then
	redis.call('DEL', key)
	return 0
end

redis.call('SET', key, next, 'KEEPTTL')
return next
`)

type Tracker struct {
	client *redis.Client
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

func key(day time.Time, slotTime string) string {
	return keyPrefix + day.Format("2006-01-02") + ":" + slotTime
}

// Reserve commits units to the slot when they fit under capacity. It reports
// false, with nothing recorded, when they do not.
func (t *Tracker) Reserve(ctx context.Context, day time.Time, slotTime string, units, capacity int) (bool, error) {
	if units <= 0 {
		return true, nil
	}
	res, err := reserveScript.Run(ctx, t.client, []string{key(day, slotTime)},
		units, capacity, int(keyTTL.Seconds())).Int()
	if err != nil {
		return false, fmt.Errorf("reserve slot load: %w", err)
	}
	return res == 1, nil
}

// Release returns units previously reserved on the slot.
func (t *Tracker) Release(ctx context.Context, day time.Time, slotTime string, units int) error {
	if units <= 0 {
		return nil
	}
	if err := releaseScript.Run(ctx, t.client, []string{key(day, slotTime)}, units).Err(); err != nil {
		return fmt.Errorf("release slot load: %w", err)
	}
	return nil
}

// Loads returns the committed units for each slot time on day. Slots with no
// record are omitted.
func (t *Tracker) Loads(ctx context.Context, day time.Time, slotTimes []string) (map[string]int, error) {
	loads := make(map[string]int, len(slotTimes))
	if len(slotTimes) == 0 {
		return loads, nil
	}
	keys := make([]string, len(slotTimes))
	for i, s := range slotTimes {
		keys[i] = key(day, s)
	}
	vals, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read slot loads: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		loads[slotTimes[i]] = n
	}
	return loads, nil
}
