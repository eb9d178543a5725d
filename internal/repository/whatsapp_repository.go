package repository

import (
	"bizbox_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WhatsAppRepository struct {
	DB *gorm.DB
}

func NewWhatsAppRepository(db *gorm.DB) *WhatsAppRepository {
	return &WhatsAppRepository{DB: db}
}

// UpsertContact creates the contact for waID or refreshes its profile name.
func (r *WhatsAppRepository) UpsertContact(ctx context.Context, contact *model.Contact) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "wa_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"profile_name", "updated_at"}),
	}
	if contact.ProfileName == "" {
		onConflict = clause.OnConflict{Columns: []clause.Column{{Name: "wa_id"}}, DoNothing: true}
	}
	err := r.DB.WithContext(ctx).Clauses(onConflict).Create(contact).Error
	if err != nil {
		return err
	}
	// Some dialects do not report the id of an updated row.
	return r.DB.WithContext(ctx).Where("wa_id = ?", contact.WaID).First(contact).Error
}

func (r *WhatsAppRepository) FindContact(ctx context.Context, id uint) (*model.Contact, error) {
	var contact model.Contact
	err := r.DB.WithContext(ctx).First(&contact, id).Error
	return &contact, err
}

func (r *WhatsAppRepository) ListContacts(ctx context.Context, orgID uint) ([]model.Contact, error) {
	contacts := []model.Contact{}
	query := r.DB.WithContext(ctx)
	if orgID > 0 {
		query = query.Where("organization_id = ?", orgID)
	}
	err := query.Order("last_message_at desc").Order("id desc").Find(&contacts).Error
	return contacts, err
}

func (r *WhatsAppRepository) TouchContact(ctx context.Context, contact *model.Contact) error {
	return r.DB.WithContext(ctx).Model(contact).
		Updates(map[string]interface{}{
			"last_message_at": contact.LastMessageAt,
			"last_message":    contact.LastMessage,
		}).Error
}

// GetOrCreateMessage inserts msg unless a message with the same provider id
// exists. created reports whether a row was written.
func (r *WhatsAppRepository) GetOrCreateMessage(ctx context.Context, msg *model.WAMessage) (bool, error) {
	var existing model.WAMessage
	err := r.DB.WithContext(ctx).Where("message_id = ?", msg.MessageID).First(&existing).Error
	if err == nil {
		*msg = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoNothing: true,
	}).Create(msg)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost a race with a concurrent delivery of the same message.
		if err := r.DB.WithContext(ctx).Where("message_id = ?", msg.MessageID).First(msg).Error; err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *WhatsAppRepository) FindMessageByProviderID(ctx context.Context, messageID string) (*model.WAMessage, error) {
	var msg model.WAMessage
	err := r.DB.WithContext(ctx).Where("message_id = ?", messageID).First(&msg).Error
	return &msg, err
}

func (r *WhatsAppRepository) ListMessages(ctx context.Context, contactID uint, limit int) ([]model.WAMessage, error) {
	messages := []model.WAMessage{}
	query := r.DB.WithContext(ctx).Where("contact_id = ?", contactID).Order("sent_at asc").Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}

// AppendStatus records a status report and moves the message to that status.
func (r *WhatsAppRepository) AppendStatus(ctx context.Context, msg *model.WAMessage, status *model.WAStatus) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status.WAMessageID = msg.ID
		if err := tx.Create(status).Error; err != nil {
			return err
		}
		msg.Status = status.Status
		return tx.Model(msg).Update("status", status.Status).Error
	})
}

func (r *WhatsAppRepository) CreateMessage(ctx context.Context, msg *model.WAMessage) error {
	return r.DB.WithContext(ctx).Create(msg).Error
}
