package catalog

import (
	"github.com/google/uuid"

	"larder/internal/costing"
	"larder/models"
)

func ingredientFromModel(record models.Ingredient) costing.Ingredient {
	offers := make([]costing.SupplierOffer, 0, len(record.Offers))
	for _, offer := range record.Offers {
		offers = append(offers, costing.SupplierOffer{
			Supplier: offer.Supplier,
			UnitCost: offer.UnitCost,
			PackSize: offer.PackSize,
		})
	}
	return costing.Ingredient{
		ID:       record.ID,
		Name:     record.Name,
		BaseUnit: record.BaseUnitID,
		Offers:   offers,
	}
}

func lineFromModel(record models.CompositionLine) costing.Line {
	line := costing.Line{
		Key:              record.ID,
		Name:             record.Name,
		Quantity:         record.Quantity,
		RecipeUnit:       record.RecipeUnitID,
		BaseUnit:         record.BaseUnitID,
		ConversionFactor: record.ConversionFactor,
		FactorStatus:     costing.FactorStatus(record.FactorStatus),
		UnitCost:         record.UnitCost,
		ReferenceVersion: record.ReferenceVersion,
		TotalCost:        record.TotalCost,
	}
	switch {
	case record.IngredientID != nil:
		line.Reference = costing.Reference{Kind: costing.KindIngredient, ID: *record.IngredientID}
	case record.PreparationID != nil:
		line.Reference = costing.Reference{Kind: costing.KindPreparation, ID: *record.PreparationID}
	}
	if line.FactorStatus == "" {
		line.FactorStatus = costing.FactorUnresolved
	}
	return line
}

func lineToModel(ownerType string, ownerID uuid.UUID, position int, line costing.Line) models.CompositionLine {
	record := models.CompositionLine{
		OwnerType:        ownerType,
		OwnerID:          ownerID,
		Position:         position,
		Quantity:         line.Quantity,
		RecipeUnitID:     line.RecipeUnit,
		ConversionFactor: line.ConversionFactor,
		FactorStatus:     string(line.FactorStatus),
		Name:             line.Name,
		BaseUnitID:       line.BaseUnit,
		UnitCost:         line.UnitCost,
		ReferenceVersion: line.ReferenceVersion,
		TotalCost:        line.TotalCost,
	}
	record.ID = line.Key
	refID := line.Reference.ID
	switch line.Reference.Kind {
	case costing.KindIngredient:
		record.IngredientID = &refID
	case costing.KindPreparation:
		record.PreparationID = &refID
	}
	return record
}

func linesFromModels(records []models.CompositionLine) []costing.Line {
	lines := make([]costing.Line, 0, len(records))
	for _, record := range records {
		lines = append(lines, lineFromModel(record))
	}
	return lines
}
