package rest

import (
	"fmt"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/application"
	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/logger"
	"github.com/cristianortiz/evauction/internal/shared/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var log = logger.GetLogger()

// CreateAuctionRequest is the body of POST /api/auctions. A zero min_increment
// falls back to the configured default.
type CreateAuctionRequest struct {
	ListingRef    string    `json:"listing_ref" validate:"required"`
	StartingPrice int64     `json:"starting_price" validate:"gt=0"`
	MinIncrement  int64     `json:"min_increment" validate:"gte=0"`
	StartAt       time.Time `json:"start_at" validate:"required"`
	EndAt         time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
}

// PlaceBidRequest is the body of POST /api/auctions/:id/bids
type PlaceBidRequest struct {
	BidderID string `json:"bidder_id" validate:"required"`
	Amount   int64  `json:"amount" validate:"gt=0"`
}

// AuctionHandler exposes the auction service over REST
type AuctionHandler struct {
	auctionService      application.AuctionService
	defaultMinIncrement int64
}

func NewAuctionHandler(auctionService application.AuctionService, defaultMinIncrement int64) *AuctionHandler {
	if defaultMinIncrement <= 0 {
		defaultMinIncrement = domain.DefaultMinIncrement
	}
	return &AuctionHandler{auctionService: auctionService, defaultMinIncrement: defaultMinIncrement}
}

func (h *AuctionHandler) RegisterRoutes(router fiber.Router) {
	api := router.Group("/api/auctions")
	api.Post("/", h.CreateAuction)
	api.Get("/", h.ListAuctions)
	api.Get("/:id", h.GetAuction)
	api.Get("/:id/bids", h.ListBids)
	api.Post("/:id/bids", h.PlaceBid)
}

func auctionIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed auction id %q", domain.ErrInvalidInput, c.Params("id"))
	}
	return id, nil
}

func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	var req CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fmt.Errorf("%w: invalid json format", domain.ErrInvalidInput))
	}
	if err := validator.GetValidator().Struct(req); err != nil {
		return respondValidationError(c, err)
	}
	if req.MinIncrement == 0 {
		req.MinIncrement = h.defaultMinIncrement
	}

	view, err := h.auctionService.CreateAuction(c.UserContext(), application.CreateAuctionDTO{
		ListingRef:    req.ListingRef,
		StartingPrice: req.StartingPrice,
		MinIncrement:  req.MinIncrement,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// ListAuctions accepts ?status= in any of the known vocabularies (upcoming, live, closed...)
func (h *AuctionHandler) ListAuctions(c *fiber.Ctx) error {
	var filter *domain.Status
	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return respondError(c, err)
		}
		filter = &status
	}
	views, err := h.auctionService.ListAuctions(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	view, err := h.auctionService.DeriveView(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	bids, err := h.auctionService.Bids(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bids)
}

func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	id, err := auctionIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fmt.Errorf("%w: invalid json format", domain.ErrInvalidInput))
	}
	if err := validator.GetValidator().Struct(req); err != nil {
		return respondValidationError(c, err)
	}

	bid, err := h.auctionService.PlaceBidWithRetry(c.UserContext(), application.PlaceBidDTO{
		AuctionID: id,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bid)
}
