package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate は一意制約違反を表す。事前確認をすり抜けた同時登録で発生する。
var ErrDuplicate = errors.New("一意制約に違反しました")

// uniqueViolation はPostgreSQLのunique_violation（23505）を示すSQLSTATE。
const uniqueViolation = pq.ErrorCode("23505")

// isUniqueViolation はエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
