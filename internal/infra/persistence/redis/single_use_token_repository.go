package redis

import (
	"context"
	"strconv"
	"time"

	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/errors"

	goredis "github.com/redis/go-redis/v9"
)

const (
	upsertStored    int64 = 0
	upsertThrottled int64 = 1
	upsertCollision int64 = 2
)

// KEYS[1] email hash, KEYS[2] code key.
// ARGV: email, code, issued_at ms, window ms, code key prefix.
const upsertScript = `
local current = redis.call("HMGET", KEYS[1], "code", "issued_at")
if current[1] and current[2] then
  if tonumber(ARGV[3]) - tonumber(current[2]) < tonumber(ARGV[4]) then
    return {1, current[1], current[2]}
  end
end
local owner = redis.call("GET", KEYS[2])
if owner and owner ~= ARGV[1] then
  return {2}
end
if current[1] then
  redis.call("DEL", ARGV[5] .. current[1])
end
redis.call("HSET", KEYS[1], "code", ARGV[2], "issued_at", ARGV[3])
redis.call("SET", KEYS[2], ARGV[1])
return {0}
`

// KEYS[1] code key. ARGV: email key prefix, code.
const consumeScript = `
local email = redis.call("GET", KEYS[1])
if not email then
  return {0}
end
redis.call("DEL", KEYS[1])
local emailKey = ARGV[1] .. email
local current = redis.call("HMGET", emailKey, "code", "issued_at")
if current[1] ~= ARGV[2] then
  return {0}
end
redis.call("DEL", emailKey)
return {1, email, current[2]}
`

var (
	upsertLua  = goredis.NewScript(upsertScript)
	consumeLua = goredis.NewScript(consumeScript)
)

// singleUseTokenRepository keeps two keys per token, sharing a {kind} hash tag
// so both live in one cluster slot:
//
//	<prefix>:{<kind>}:email:<email> hash with code and issued_at
//	<prefix>:{<kind>}:code:<code>   the owning email
type singleUseTokenRepository struct {
	client goredis.UniversalClient
	prefix string
}

// NewSingleUseTokenRepository builds the Redis token store under keyPrefix.
func NewSingleUseTokenRepository(client goredis.UniversalClient, keyPrefix string) repository.SingleUseTokenRepository {
	return &singleUseTokenRepository{client: client, prefix: keyPrefix}
}

func (repo *singleUseTokenRepository) kindPrefix(kind entity.TokenKind) string {
	return repo.prefix + ":{" + kind.String() + "}:"
}

func (repo *singleUseTokenRepository) emailPrefix(kind entity.TokenKind) string {
	return repo.kindPrefix(kind) + "email:"
}

func (repo *singleUseTokenRepository) codePrefix(kind entity.TokenKind) string {
	return repo.kindPrefix(kind) + "code:"
}

func (repo *singleUseTokenRepository) UpsertIfNotThrottled(
	ctx context.Context,
	token *entity.SingleUseToken,
	window time.Duration,
) (*entity.SingleUseToken, error) {
	keys := []string{
		repo.emailPrefix(token.Kind) + token.Email,
		repo.codePrefix(token.Kind) + token.Code,
	}
	args := []any{
		token.Email,
		token.Code,
		token.IssuedAt.UnixMilli(),
		window.Milliseconds(),
		repo.codePrefix(token.Kind),
	}

	reply, err := upsertLua.Run(ctx, repo.client, keys, args...).Slice()
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "upsert single-use token")
	}

	status, err := replyStatus(reply)
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "upsert single-use token")
	}

	switch status {
	case upsertStored:
		stored := *token

		return &stored, nil
	case upsertThrottled:
		existing := &entity.SingleUseToken{Kind: token.Kind, Email: token.Email}
		existing.Code, existing.IssuedAt = replyToken(reply)

		return existing, repository.ErrTokenThrottled
	case upsertCollision:
		return nil, repository.ErrCodeCollision
	default:
		return nil, domainerrors.NewDatabaseExecuteError(
			errors.Errorf("unexpected upsert status %d", status), "upsert single-use token")
	}
}

func (repo *singleUseTokenRepository) FindByCode(ctx context.Context, kind entity.TokenKind, code string) (*entity.SingleUseToken, error) {
	email, err := repo.client.Get(ctx, repo.codePrefix(kind)+code).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, repository.ErrTokenNotFound
	}
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "find single-use token by code")
	}

	fields, err := repo.client.HMGet(ctx, repo.emailPrefix(kind)+email, "code", "issued_at").Result()
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "find single-use token by code")
	}

	stored, _ := fields[0].(string)
	if stored != code {
		return nil, repository.ErrTokenNotFound
	}
	issued, _ := fields[1].(string)

	return &entity.SingleUseToken{Kind: kind, Email: email, Code: code, IssuedAt: parseMillis(issued)}, nil
}

func (repo *singleUseTokenRepository) DeleteByCode(ctx context.Context, kind entity.TokenKind, code string) (*entity.SingleUseToken, error) {
	keys := []string{repo.codePrefix(kind) + code}

	reply, err := consumeLua.Run(ctx, repo.client, keys, repo.emailPrefix(kind), code).Slice()
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "delete single-use token by code")
	}

	status, err := replyStatus(reply)
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "delete single-use token by code")
	}
	if status == 0 {
		return nil, repository.ErrTokenNotFound
	}

	token := &entity.SingleUseToken{Kind: kind, Code: code}
	token.Email, token.IssuedAt = replyToken(reply)

	return token, nil
}

func replyStatus(reply []any) (int64, error) {
	if len(reply) == 0 {
		return 0, errors.New("empty script reply")
	}

	status, ok := reply[0].(int64)
	if !ok {
		return 0, errors.Errorf("unexpected script status type %T", reply[0])
	}

	return status, nil
}

// replyToken reads the {status, value, issued_at} tail of a script reply.
func replyToken(reply []any) (string, time.Time) {
	if len(reply) < 3 {
		return "", time.Time{}
	}

	value, _ := reply[1].(string)
	issued, _ := reply[2].(string)

	return value, parseMillis(issued)
}

func parseMillis(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms).UTC()
}
