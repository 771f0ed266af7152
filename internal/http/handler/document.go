package handler

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docarchive/internal/export"
	"docarchive/internal/model"
	"docarchive/internal/query"
	"docarchive/internal/service"
	"docarchive/internal/upload"
)

// listParams reads the filter and search query parameters shared by list and export.
func listParams(c *fiber.Ctx) query.Params {
	return query.Params{
		CategoryID: c.Query("category"),
		OfficeID:   c.Query("office"),
		Direction:  c.Query("direction"),
		Start:      c.Query("start"),
		End:        c.Query("end"),
		Search:     c.Query("q"),
	}
}

// ListDocuments lists documents with filters, search and incremental pages.
//
// Query: category, office, direction, start, end (YYYY-MM-DD), q, pages (default 1).
func ListDocuments(svc service.DocumentService, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pages, err := strconv.Atoi(c.Query("pages", "1"))
		if err != nil || pages < 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGES", "pages must be a positive integer")
		}

		params := listParams(c)
		filter, err := params.Filter(loc)
		if err != nil {
			return writeServiceError(c, err)
		}

		res, err := svc.List(c.UserContext(), service.ListQuery{Filter: filter, Search: params.Search, Pages: pages})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ExportDocuments downloads the listed documents as CSV. ids (comma-separated)
// narrows the export to a selection.
func ExportDocuments(svc service.DocumentService, loc *time.Location, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := listParams(c)
		filter, err := params.Filter(loc)
		if err != nil {
			return writeServiceError(c, err)
		}

		q := service.ExportQuery{Filter: filter, Search: params.Search}
		for _, id := range strings.Split(c.Query("ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.IDs = append(q.IDs, id)
			}
		}

		var buf bytes.Buffer
		if err := svc.Export(c.UserContext(), &buf, q); err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, export.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename(now().In(loc))))
		return c.Send(buf.Bytes())
	}
}

// GetDocument returns a document's metadata.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DocumentContent streams a document's content. With redirect=true, content held
// in the object store is served through a presigned URL instead.
func DocumentContent(svc service.DocumentService, presignExpiry time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		if c.QueryBool("redirect") {
			url, err := svc.ContentURL(c.UserContext(), id, presignExpiry)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.Redirect(url, fiber.StatusFound)
		}

		content, err := svc.Content(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, content.MimeType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", content.Filename))
		size := -1
		if content.Size > 0 {
			size = int(content.Size)
		}
		return c.SendStream(content.Body, size)
	}
}

// UploadDocument stores a new document (multipart/form-data).
//
// Fields: file, category_id, office_id, direction, title, reference_number
// (optional), document_date (YYYY-MM-DD).
func UploadDocument(svc service.DocumentService, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		req := upload.Request{
			File: upload.File{
				Name:     fh.Filename,
				MimeType: fh.Header.Get(fiber.HeaderContentType),
				Content:  f,
			},
			CategoryID:      c.FormValue("category_id"),
			OfficeID:        c.FormValue("office_id"),
			Direction:       model.Direction(c.FormValue("direction")),
			Title:           c.FormValue("title"),
			ReferenceNumber: c.FormValue("reference_number"),
		}
		if v := strings.TrimSpace(c.FormValue("document_date")); v != "" {
			d, err := time.ParseInLocation(query.DateLayout, v, loc)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_DATE", "document_date must be YYYY-MM-DD")
			}
			req.DocumentDate = d
		}

		res, err := svc.Upload(c.UserContext(), req, nil)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// DeleteDocument removes a document and its content.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// Dashboard returns the document counts shown on the dashboard.
func Dashboard(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := svc.Metrics(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(m)
	}
}
