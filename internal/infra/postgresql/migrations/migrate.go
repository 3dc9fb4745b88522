package migrations

import (
	"github.com/buybloem/storefront-notifier/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_store_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(
					&repository.CustomerModel{},
					&repository.AddressModel{},
					&repository.VendorModel{},
					&repository.OrderModel{},
					&repository.OrderItemModel{},
				); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&repository.OrderItemModel{},
					&repository.OrderModel{},
					&repository.VendorModel{},
					&repository.AddressModel{},
					&repository.CustomerModel{},
				)
			},
		},
		{
			ID: "000002_create_order_notes",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.OrderNoteModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_order_notes_order_id ON order_notes (order_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.OrderNoteModel{})
			},
		},
		{
			ID: "000003_create_delivery_attempts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_order_id ON delivery_attempts (order_id) WHERE order_id IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_created_at ON delivery_attempts (created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
			},
		},
	})

	return m.Migrate()
}
