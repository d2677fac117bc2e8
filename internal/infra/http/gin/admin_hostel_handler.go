package ginserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"hostelfinder/internal/app/commands"
	"hostelfinder/internal/app/dto"
	hostelapp "hostelfinder/internal/app/handlers/hostels"
	"hostelfinder/internal/app/queries"
	domainhostels "hostelfinder/internal/domain/hostels"
)

const (
	maxHostelImageSizeBytes int64 = 10 * 1024 * 1024
	maxHostelImages               = 10
	multipartMemory               = 32 << 20
)

type AdminHostelHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type AdminHostelHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// hostelRequest accepts numbers either as JSON numbers or strings.
type hostelRequest struct {
	Name           string                `json:"name"`
	Price          flexString            `json:"price"`
	RoomTypes      []string              `json:"room_types"`
	RoomPrices     map[string]flexString `json:"room_prices"`
	OwnerName      string                `json:"owner_name"`
	OwnerContact   string                `json:"owner_contact"`
	Description    string                `json:"description"`
	AvailableRooms flexString            `json:"available_rooms"`
}

func (r hostelRequest) draft() domainhostels.Draft {
	prices := make(map[string]string, len(r.RoomPrices))
	for kind, price := range r.RoomPrices {
		prices[kind] = string(price)
	}
	return domainhostels.Draft{
		Name:           r.Name,
		Price:          string(r.Price),
		RoomTypes:      r.RoomTypes,
		RoomPrices:     prices,
		OwnerName:      r.OwnerName,
		OwnerContact:   r.OwnerContact,
		Description:    r.Description,
		AvailableRooms: string(r.AvailableRooms),
	}
}

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (h AdminHostelHandler) List(c *gin.Context) {
	query := hostelapp.ListHostelsQuery{Unfiltered: true, Criteria: domainhostels.AnyCriteria()}
	result, err := queries.Ask[hostelapp.ListHostelsQuery, dto.HostelCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHostelHandler) Create(c *gin.Context) {
	req, images, err := readHostelSubmission(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	cmd := hostelapp.CreateHostelCommand{Actor: guardedUser(c), Draft: req.draft(), Images: images}
	result, err := commands.Dispatch[hostelapp.CreateHostelCommand, *dto.HostelDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", "/api/v1/admin/hostels/"+result.ID)
	c.JSON(http.StatusCreated, result)
}

func (h AdminHostelHandler) Get(c *gin.Context) {
	query := hostelapp.GetHostelQuery{Actor: guardedUser(c), ID: c.Param("id")}
	result, err := queries.Ask[hostelapp.GetHostelQuery, *dto.HostelDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHostelHandler) Update(c *gin.Context) {
	req, images, err := readHostelSubmission(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	cmd := hostelapp.UpdateHostelCommand{Actor: guardedUser(c), ID: c.Param("id"), Draft: req.draft(), Images: images}
	result, err := commands.Dispatch[hostelapp.UpdateHostelCommand, *dto.HostelDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHostelHandler) Delete(c *gin.Context) {
	cmd := hostelapp.DeleteHostelCommand{Actor: guardedUser(c), ID: c.Param("id")}
	if _, err := commands.Dispatch[hostelapp.DeleteHostelCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AdminHostelHandler) badRequest(c *gin.Context, err error) {
	if h.Logger != nil {
		h.Logger.Warn("hostel submission rejected", "path", c.FullPath(), "error", err)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// readHostelSubmission accepts either a JSON body or a multipart form with the
// JSON in a "payload" field and files under "images".
func readHostelSubmission(c *gin.Context) (hostelRequest, []hostelapp.Image, error) {
	var req hostelRequest
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, nil, fmt.Errorf("invalid request: %w", err)
		}
		return req, nil, nil
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return req, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	payload := c.Request.FormValue("payload")
	if strings.TrimSpace(payload) == "" {
		return req, nil, errors.New("payload is required")
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return req, nil, fmt.Errorf("invalid payload: %w", err)
	}
	var files []*multipart.FileHeader
	if c.Request.MultipartForm != nil {
		files = c.Request.MultipartForm.File["images"]
	}
	if len(files) > maxHostelImages {
		return req, nil, fmt.Errorf("too many images (max %d)", maxHostelImages)
	}
	images := make([]hostelapp.Image, 0, len(files))
	for _, fh := range files {
		img, err := readImage(fh)
		if err != nil {
			return req, nil, err
		}
		images = append(images, img)
	}
	return req, images, nil
}

func readImage(fh *multipart.FileHeader) (hostelapp.Image, error) {
	tooLarge := fmt.Errorf("%s: file too large (max %d MB)", fh.Filename, maxHostelImageSizeBytes/1024/1024)
	if fh.Size <= 0 {
		return hostelapp.Image{}, fmt.Errorf("%s: file is empty", fh.Filename)
	}
	if fh.Size > maxHostelImageSizeBytes {
		return hostelapp.Image{}, tooLarge
	}
	file, err := fh.Open()
	if err != nil {
		return hostelapp.Image{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxHostelImageSizeBytes+1024))
	if err != nil {
		return hostelapp.Image{}, fmt.Errorf("%s: cannot read file: %w", fh.Filename, err)
	}
	if len(data) == 0 {
		return hostelapp.Image{}, fmt.Errorf("%s: file is empty", fh.Filename)
	}
	if int64(len(data)) > maxHostelImageSizeBytes {
		return hostelapp.Image{}, tooLarge
	}
	contentType := http.DetectContentType(data)
	if !isAllowedImageType(contentType) {
		return hostelapp.Image{}, fmt.Errorf("%s: unsupported content type: %s", fh.Filename, contentType)
	}
	return hostelapp.Image{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}

func isAllowedImageType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	default:
		return false
	}
}

var _ AdminHostelHTTP = (*AdminHostelHandler)(nil)
