package redis

const (
	// upsertActivityScript atomically writes an activity and moves its
	// index entries when the project or start time changed.
	upsertActivityScript = `
local activity_key = KEYS[1]   -- {prefix}:activity:{id}
local start_index = KEYS[2]    -- {prefix}:activities:start
local project_index = KEYS[3]  -- {prefix}:activities:project:{projectID}
local project_prefix = ARGV[7] -- {prefix}:activities:project:

local id = ARGV[1]
local project_id = ARGV[2]
local start = ARGV[3]
local finish = ARGV[4]
local description = ARGV[5]
local score = tonumber(ARGV[6])

-- Drop the previous project index entry if the project changed
local previous = redis.call('HGET', activity_key, 'project_id')
if previous and previous ~= project_id then
  redis.call('ZREM', project_prefix .. previous, id)
end

redis.call('HSET', activity_key,
  'id', id,
  'project_id', project_id,
  'start', start,
  'end', finish,
  'description', description
)

redis.call('ZADD', start_index, score, id)
redis.call('ZADD', project_index, score, id)

return 'OK'
`

	// deleteActivityScript removes an activity and its index entries.
	// Returns 0 when the activity does not exist.
	deleteActivityScript = `
local activity_key = KEYS[1]
local start_index = KEYS[2]
local project_prefix = ARGV[2]
local id = ARGV[1]

local project_id = redis.call('HGET', activity_key, 'project_id')
if not project_id then
  return 0
end

redis.call('ZREM', project_prefix .. project_id, id)
redis.call('ZREM', start_index, id)
redis.call('DEL', activity_key)

return 1
`

	// upsertProjectScript writes a project and keeps the id sequence ahead
	// of explicitly chosen ids.
	upsertProjectScript = `
local project_key = KEYS[1]
local project_set = KEYS[2]
local seq_key = KEYS[3]

local id = tonumber(ARGV[1])

redis.call('HSET', project_key,
  'id', ARGV[1],
  'title', ARGV[2],
  'description', ARGV[3],
  'active', ARGV[4]
)
redis.call('SADD', project_set, ARGV[1])

local current = tonumber(redis.call('GET', seq_key) or '0')
if current < id then
  redis.call('SET', seq_key, id)
end

return 'OK'
`
)
