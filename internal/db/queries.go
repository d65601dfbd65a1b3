package db

import (
	"errors"

	m "portfoliotracker/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/*
memo. every query is scoped by user id. rows owned by another user behave as missing
*/

func (s Storage) RetrieveAPIKey(userID string) (*m.APIKey, error) {

	var key m.APIKey
	result := s.db.Where("user_id = ?", userID).First(&key)
	if result.Error != nil {
		return nil, result.Error
	}

	s.lg.Info().Msgf("Retrieved api key for user %s", userID)
	return &key, nil
}

func (s Storage) SaveAPIKey(userID, apiKey, cipherSecret string) error {

	key := m.APIKey{
		UserID:          userID,
		KrakenAPIKey:    apiKey,
		KrakenAPISecret: cipherSecret,
	}

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kraken_api_key", "kraken_api_secret", "updated_at"}),
	}).Create(&key).Error
}

func (s Storage) DeleteAPIKey(userID string) error {
	return s.db.Where("user_id = ?", userID).Delete(&m.APIKey{}).Error
}

func (s Storage) RetrieveManualAssets(userID string) ([]m.ManualAsset, error) {

	var assets []m.ManualAsset
	result := s.db.Where("user_id = ?", userID).Order("created_at").Find(&assets)
	if result.Error != nil {
		return nil, result.Error
	}

	s.lg.Info().Msgf("Retrieved %d manual assets", len(assets))
	return assets, nil
}

func (s Storage) RetrieveManualAsset(userID, id string) (*m.ManualAsset, error) {

	var asset m.ManualAsset
	result := s.db.Where("user_id = ? AND id = ?", userID, id).First(&asset)
	if result.Error != nil {
		return nil, result.Error
	}
	return &asset, nil
}

func (s Storage) SaveManualAsset(asset *m.ManualAsset) error {
	return s.db.Create(asset).Error
}

func (s Storage) UpdateManualAsset(asset *m.ManualAsset) error {

	result := s.db.Model(&m.ManualAsset{}).
		Where("user_id = ? AND id = ?", asset.UserID, asset.ID).
		Updates(map[string]any{
			"symbol":     asset.Symbol,
			"name":       asset.Name,
			"asset_type": asset.AssetType,
			"quantity":   asset.Quantity,
			"cost_basis": asset.CostBasis,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s Storage) DeleteManualAsset(userID, id string) error {
	return deleted(s.db.Where("user_id = ? AND id = ?", userID, id).Delete(&m.ManualAsset{}))
}

func (s Storage) RetrieveCostBases(userID string) ([]m.AssetCostBasis, error) {

	var rows []m.AssetCostBasis
	result := s.db.Where("user_id = ?", userID).Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	s.lg.Info().Msgf("Retrieved %d cost basis records", len(rows))
	return rows, nil
}

// UpsertCostBasis writes one (user, symbol, asset_type) record in a single statement and reloads the stored row into row.
func (s Storage) UpsertCostBasis(row *m.AssetCostBasis) error {

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "symbol"}, {Name: "asset_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"cost_basis", "notes", "updated_at"}),
	}).Create(row)
	if result.Error != nil {
		return result.Error
	}

	// on conflict the generated id was never written
	var stored m.AssetCostBasis
	result = s.db.Where("user_id = ? AND symbol = ? AND asset_type = ?", row.UserID, row.Symbol, row.AssetType).First(&stored)
	if result.Error != nil {
		return result.Error
	}
	*row = stored
	return nil
}

func (s Storage) RetrievePortfolios(userID string) ([]m.Portfolio, error) {

	var portfolios []m.Portfolio
	result := s.db.Where("user_id = ?", userID).Order("is_default desc").Order("created_at desc").Find(&portfolios)
	if result.Error != nil {
		return nil, result.Error
	}

	s.lg.Info().Msgf("Retrieved %d portfolios", len(portfolios))
	return portfolios, nil
}

func (s Storage) RetrievePortfolio(userID, id string) (*m.Portfolio, error) {

	var p m.Portfolio
	result := s.db.Where("user_id = ? AND id = ?", userID, id).First(&p)
	if result.Error != nil {
		return nil, result.Error
	}
	return &p, nil
}

func (s Storage) ExistsPortfolioName(userID, name string) (bool, error) {

	var cnt int64
	result := s.db.Model(&m.Portfolio{}).Where("user_id = ? AND name = ?", userID, name).Count(&cnt)
	if result.Error != nil {
		return false, result.Error
	}
	return cnt > 0, nil
}

func (s Storage) SavePortfolio(p *m.Portfolio) error {
	return s.db.Create(p).Error
}

// UpdatePortfolio applies the changed fields. Making a portfolio the default clears the flag on the user's others.
func (s Storage) UpdatePortfolio(userID, id string, name *string, description *string, isDefault *bool) (*m.Portfolio, error) {

	var p m.Portfolio
	err := s.db.Transaction(func(tx *gorm.DB) error {

		if err := tx.Where("user_id = ? AND id = ?", userID, id).First(&p).Error; err != nil {
			return err
		}

		fields := map[string]any{}
		if name != nil {
			fields["name"] = *name
		}
		if description != nil {
			fields["description"] = *description
		}
		if isDefault != nil {
			fields["is_default"] = *isDefault
			if *isDefault {
				err := tx.Model(&m.Portfolio{}).
					Where("user_id = ? AND id <> ?", userID, id).
					Update("is_default", false).Error
				if err != nil {
					return err
				}
			}
		}
		if len(fields) == 0 {
			return nil
		}

		if err := tx.Model(&p).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s Storage) DeletePortfolio(userID, id string) error {

	return s.db.Transaction(func(tx *gorm.DB) error {
		var p m.Portfolio
		if err := tx.Where("user_id = ? AND id = ?", userID, id).First(&p).Error; err != nil {
			return err
		}
		if err := tx.Where("portfolio_id = ?", id).Delete(&m.PortfolioAsset{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

func (s Storage) RetrievePortfolioAssets(portfolioID string) ([]m.PortfolioAsset, error) {

	var assets []m.PortfolioAsset
	result := s.db.Where("portfolio_id = ?", portfolioID).Order("created_at").Find(&assets)
	if result.Error != nil {
		return nil, result.Error
	}

	s.lg.Info().Msgf("Retrieved %d assets of portfolio %s", len(assets), portfolioID)
	return assets, nil
}

func (s Storage) SavePortfolioAsset(asset *m.PortfolioAsset) error {
	return s.db.Create(asset).Error
}

func (s Storage) DeletePortfolioAsset(portfolioID, id string) error {
	return deleted(s.db.Where("portfolio_id = ? AND id = ?", portfolioID, id).Delete(&m.PortfolioAsset{}))
}

func (s Storage) RetrieveAnalyses(userID string) ([]m.SavedAnalysis, error) {

	var rows []m.SavedAnalysis
	result := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	s.lg.Info().Msgf("Retrieved %d saved analyses", len(rows))
	return rows, nil
}

func (s Storage) SaveAnalysis(row *m.SavedAnalysis) error {
	return s.db.Create(row).Error
}

func (s Storage) DeleteAnalysis(userID, id string) error {
	return deleted(s.db.Where("user_id = ? AND id = ?", userID, id).Delete(&m.SavedAnalysis{}))
}

func (s Storage) SaveReview(row *m.PortfolioReview) error {
	return s.db.Create(row).Error
}

func (s Storage) RetrieveReviews(userID string) ([]m.PortfolioReview, error) {

	var rows []m.PortfolioReview
	result := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

func (s Storage) UpsertProfile(id, email string) (*m.Profile, error) {

	p := m.Profile{ID: id, Email: email}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func deleted(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
