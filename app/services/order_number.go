package services

import (
	"fmt"
	"time"

	"ShopPOS/app/models"

	"gorm.io/gorm"
)

// maxOrderSequence is the last three-digit sequence before falling back
const maxOrderSequence = 999

// GenerateOrderNumber builds CMD-<YYYYMMDD>-<HHMM>-<NNN> for an order dated date.
//
// The sequence is seeded with the number of titles already using the
// CMD-<YYYYMMDD>- prefix and searched upwards until a free title is found,
// skipping the order's own row (excludeID). seed+1 is always tried, even past
// 999; once probing goes beyond 999 the sequence is replaced by the first three
// digits of the sub-second part of now. That fallback is not checked: it can
// match a title already taken under the same HHMM, and the insert then fails
// on the unique index.
//
// The existence check and the later insert are not atomic: two concurrent
// creations can pick the same title, and the unique index on orders.title
// rejects the second insert.
func GenerateOrderNumber(tx *gorm.DB, date time.Time, excludeID uint, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s%s-", models.OrderNumberPrefix, date.Format("20060102"))
	clock := now.Format("1504")

	var seed int64
	if err := tx.Model(&models.Order{}).Where("title LIKE ?", prefix+"%").Count(&seed).Error; err != nil {
		return "", fmt.Errorf("failed to count orders for %s: %w", prefix, err)
	}

	for seq := int(seed) + 1; ; seq++ {
		if seq > maxOrderSequence && seq > int(seed)+1 {
			micros := fmt.Sprintf("%06d", now.Nanosecond()/1000)
			return fmt.Sprintf("%s%s-%s", prefix, clock, micros[:3]), nil
		}
		candidate := fmt.Sprintf("%s%s-%03d", prefix, clock, seq)

		var taken int64
		query := tx.Model(&models.Order{}).Where("title = ?", candidate)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		if err := query.Count(&taken).Error; err != nil {
			return "", fmt.Errorf("failed to check order number %s: %w", candidate, err)
		}
		if taken == 0 {
			return candidate, nil
		}
	}
}
