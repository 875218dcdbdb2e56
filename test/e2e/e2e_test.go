//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceText = `NOTA FISCAL DE SERVIÇOS ELETRÔNICA
Prestador: Energia Elétrica S.A.
Data de emissão: 15/03/2025
Vencimento: 30/03/2025
Valor total: R$ 1.234,56
Referente ao fornecimento de energia elétrica do mês de fevereiro.`

const contractText = `CONTRATO DE PRESTAÇÃO DE SERVIÇOS
As partes celebram o presente contrato conforme a cláusula primeira.
Contratante: Maria dos Santos Oliveira
Data de assinatura: 10/01/2024
Valor mensal: R$ 5.000,00`

// TestE2E_Auth tests bearer token authentication on the API surface
func TestE2E_Auth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health endpoint is open", func(t *testing.T) {
		resp, err := env.Get("/health", "")
		require.NoError(t, err)
		assert.NotNil(t, resp)
	})

	t.Run("valid token works for authentication", func(t *testing.T) {
		resp, err := env.Get("/content", env.APIToken)
		require.NoError(t, err)

		var list struct {
			Items []interface{} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		assert.NotNil(t, list.Items) // Should be empty array, not error
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		_, err := env.Get("/content", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("invalid token returns 401", func(t *testing.T) {
		_, err := env.Get("/content", "crp_wrongtoken")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

// TestE2E_ContentLifecycle tests upload, retrieval, listing, and deletion
func TestE2E_ContentLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var contentID string

	t.Run("upload enhances the document", func(t *testing.T) {
		resp, err := env.Post("/content", map[string]interface{}{
			"content":  invoiceText,
			"filename": "fatura-energia.txt",
		}, env.APIToken)
		require.NoError(t, err)

		var result struct {
			Unit struct {
				ID         string                 `json:"id"`
				Text       string                 `json:"text"`
				Metadata   map[string]interface{} `json:"metadata"`
				Provenance string                 `json:"provenance"`
			} `json:"unit"`
			Enhanced   bool `json:"enhanced"`
			ChunkCount int  `json:"chunk_count"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))

		assert.NotEmpty(t, result.Unit.ID)
		assert.Equal(t, "upload", result.Unit.Provenance)
		assert.True(t, result.Enhanced)
		assert.Equal(t, "invoice", result.Unit.Metadata["document_type"])
		assert.Equal(t, "fatura-energia.txt", result.Unit.Metadata["filename"])
		assert.NotEmpty(t, result.Unit.Metadata["dates"])
		assert.NotEmpty(t, result.Unit.Metadata["amounts"])

		contentID = result.Unit.ID
	})

	t.Run("get returns the stored unit", func(t *testing.T) {
		resp, err := env.Get("/content/"+contentID, env.APIToken)
		require.NoError(t, err)

		var unit struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &unit))
		assert.Equal(t, contentID, unit.ID)
		assert.Contains(t, unit.Text, "NOTA FISCAL")
	})

	t.Run("list shows the upload", func(t *testing.T) {
		resp, err := env.Get("/content?provenance=upload", env.APIToken)
		require.NoError(t, err)

		var list struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))

		found := false
		for _, item := range list.Items {
			if item.ID == contentID {
				found = true
			}
		}
		assert.True(t, found, "uploaded unit should appear in the list")
	})

	t.Run("delete removes the unit", func(t *testing.T) {
		_, err := env.Delete("/content/"+contentID, env.APIToken)
		require.NoError(t, err)

		_, err = env.Get("/content/"+contentID, env.APIToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("get of unknown id returns 404", func(t *testing.T) {
		_, err := env.Get("/content/00000000-0000-0000-0000-000000000000", env.APIToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_Chunking tests that long uploads are split into chunk units
func TestE2E_Chunking(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	paragraph := "Relatório anual de atividades. A análise trimestral mostra um resumo detalhado dos resultados obtidos em cada área da companhia durante o período avaliado. "
	longText := strings.Repeat(paragraph+"\n\n", 25)

	resp, err := env.Post("/content", map[string]interface{}{
		"content":  longText,
		"filename": "relatorio-anual.txt",
	}, env.APIToken)
	require.NoError(t, err)

	var result struct {
		Unit struct {
			ID string `json:"id"`
		} `json:"unit"`
		ChunkCount int `json:"chunk_count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.GreaterOrEqual(t, result.ChunkCount, 2, "long document should be chunked")

	t.Run("chunks carry derived ids", func(t *testing.T) {
		chunkID := fmt.Sprintf("%s_chunk_0", result.Unit.ID)
		chunkResp, err := env.Get("/content/"+chunkID, env.APIToken)
		require.NoError(t, err)

		var chunk struct {
			ID       string                 `json:"id"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(chunkResp.Data, &chunk))
		assert.Equal(t, chunkID, chunk.ID)
		assert.Equal(t, result.Unit.ID, chunk.Metadata["original_id"])
	})

	t.Run("deleting the parent removes its chunks", func(t *testing.T) {
		_, err := env.Delete("/content/"+result.Unit.ID, env.APIToken)
		require.NoError(t, err)

		chunkID := fmt.Sprintf("%s_chunk_0", result.Unit.ID)
		_, err = env.Get("/content/"+chunkID, env.APIToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_ArchiveRoundTrip tests that the raw payload survives in object storage
func TestE2E_ArchiveRoundTrip(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/content", map[string]interface{}{
		"content":  invoiceText,
		"filename": "fatura.txt",
	}, env.APIToken)
	require.NoError(t, err)

	var result struct {
		Unit struct {
			ID         string `json:"id"`
			ArchiveKey string `json:"archive_key"`
		} `json:"unit"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.NotEmpty(t, result.Unit.ArchiveKey)

	archiveResp, err := env.Get("/content/"+result.Unit.ID+"/archive", env.APIToken)
	require.NoError(t, err)

	var archive struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(archiveResp.Data, &archive))
	require.NotEmpty(t, archive.URL)

	downloaded, err := env.DownloadFile(archive.URL)
	require.NoError(t, err)
	assert.Equal(t, SHA256Sum([]byte(invoiceText)), SHA256Sum(downloaded),
		"archived payload must match the original upload byte for byte")
}

// TestE2E_SyncLifecycle tests reconciliation of the corpus with the source file
func TestE2E_SyncLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	type syncCounts struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Added     int    `json:"added"`
		Changed   int    `json:"changed"`
		Deleted   int    `json:"deleted"`
		Unchanged int    `json:"unchanged"`
	}

	runSync := func(t *testing.T) syncCounts {
		resp, err := env.Post("/sync", nil, env.APIToken)
		require.NoError(t, err)
		var run syncCounts
		require.NoError(t, json.Unmarshal(resp.Data, &run))
		return run
	}

	t.Run("first pass imports every row", func(t *testing.T) {
		env.WriteSource([][]string{
			{"como pedir reembolso", "abra o portal financeiro e anexe os comprovantes", "faq", "financeiro", "corporativo"},
			{"politica de ferias", "solicite com 30 dias de antecedencia", "faq", "rh", "corporativo"},
		})

		run := runSync(t)
		assert.Equal(t, "completed", run.Status)
		assert.Equal(t, 2, run.Added)
		assert.Equal(t, 0, run.Changed)
		assert.Equal(t, 0, run.Deleted)
		assert.Equal(t, 0, run.Unchanged)
	})

	t.Run("second pass reports per-row outcomes", func(t *testing.T) {
		// Row 1 unchanged, row 2 edited, row 3 new.
		env.WriteSource([][]string{
			{"como pedir reembolso", "abra o portal financeiro e anexe os comprovantes", "faq", "financeiro", "corporativo"},
			{"politica de ferias", "solicite com 45 dias de antecedencia", "faq", "rh", "corporativo"},
			{"horario de atendimento", "das 9h as 18h em dias uteis", "faq", "geral", "corporativo"},
		})

		run := runSync(t)
		assert.Equal(t, 1, run.Added)
		assert.Equal(t, 1, run.Changed)
		assert.Equal(t, 0, run.Deleted)
		assert.Equal(t, 1, run.Unchanged)
	})

	t.Run("rows dropped from the tail are deleted", func(t *testing.T) {
		env.WriteSource([][]string{
			{"como pedir reembolso", "abra o portal financeiro e anexe os comprovantes", "faq", "financeiro", "corporativo"},
			{"politica de ferias", "solicite com 45 dias de antecedencia", "faq", "rh", "corporativo"},
		})

		run := runSync(t)
		assert.Equal(t, 0, run.Added)
		assert.Equal(t, 0, run.Changed)
		assert.Equal(t, 1, run.Deleted)
		assert.Equal(t, 2, run.Unchanged)
	})

	t.Run("synced rows carry bulk provenance", func(t *testing.T) {
		resp, err := env.Get("/content?provenance=bulk", env.APIToken)
		require.NoError(t, err)

		var list struct {
			Items []struct {
				Text       string `json:"text"`
				Provenance string `json:"provenance"`
				RowIndex   *int   `json:"row_index"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		require.Len(t, list.Items, 2)
		for _, item := range list.Items {
			assert.Equal(t, "bulk", item.Provenance)
			assert.NotNil(t, item.RowIndex)
		}
	})

	t.Run("sync-owned content cannot be deleted by hand", func(t *testing.T) {
		resp, err := env.Get("/content?provenance=bulk", env.APIToken)
		require.NoError(t, err)

		var list struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		require.NotEmpty(t, list.Items)

		_, err = env.Delete("/content/"+list.Items[0].ID, env.APIToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "409")
	})

	t.Run("status returns the latest run", func(t *testing.T) {
		resp, err := env.Get("/sync/status", env.APIToken)
		require.NoError(t, err)

		var run syncCounts
		require.NoError(t, json.Unmarshal(resp.Data, &run))
		assert.Equal(t, "completed", run.Status)
		assert.Equal(t, 1, run.Deleted)
	})

	t.Run("history lists every pass newest first", func(t *testing.T) {
		resp, err := env.Get("/sync/runs", env.APIToken)
		require.NoError(t, err)

		var history struct {
			Runs []syncCounts `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &history))
		require.Len(t, history.Runs, 3)
		assert.Equal(t, 1, history.Runs[0].Deleted)
		assert.Equal(t, 2, history.Runs[2].Added)
	})
}

// TestE2E_SyncLeavesUploadsAlone tests that reconciliation never touches uploads
func TestE2E_SyncLeavesUploadsAlone(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/content", map[string]interface{}{
		"content":  contractText,
		"filename": "contrato.txt",
	}, env.APIToken)
	require.NoError(t, err)

	var result struct {
		Unit struct {
			ID string `json:"id"`
		} `json:"unit"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))

	// A pass over an empty source deletes nothing it does not own.
	env.WriteSource(nil)
	_, err = env.Post("/sync", nil, env.APIToken)
	require.NoError(t, err)

	got, err := env.Get("/content/"+result.Unit.ID, env.APIToken)
	require.NoError(t, err)
	assert.NotNil(t, got.Data)
}

// TestE2E_FilterWorkflow tests metadata filtering over enhanced uploads
func TestE2E_FilterWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	for _, doc := range []struct{ content, filename string }{
		{invoiceText, "fatura-energia.txt"},
		{contractText, "contrato-servicos.txt"},
	} {
		_, err := env.Post("/content", map[string]interface{}{
			"content":  doc.content,
			"filename": doc.filename,
		}, env.APIToken)
		require.NoError(t, err)
	}

	filterItems := func(t *testing.T, body map[string]interface{}) []map[string]interface{} {
		resp, err := env.Post("/filter", body, env.APIToken)
		require.NoError(t, err)
		var out struct {
			Items []map[string]interface{} `json:"items"`
			Total int                      `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		return out.Items
	}

	t.Run("by document type", func(t *testing.T) {
		items := filterItems(t, map[string]interface{}{"document_type": "invoice"})
		require.Len(t, items, 1)
		meta := items[0]["metadata"].(map[string]interface{})
		assert.Equal(t, "fatura-energia.txt", meta["filename"])
	})

	t.Run("by year", func(t *testing.T) {
		items := filterItems(t, map[string]interface{}{"year": 2024})
		require.Len(t, items, 1)
		meta := items[0]["metadata"].(map[string]interface{})
		assert.Equal(t, "contrato-servicos.txt", meta["filename"])
	})

	t.Run("by amount range", func(t *testing.T) {
		items := filterItems(t, map[string]interface{}{
			"min_amount": 1000.0,
			"max_amount": 2000.0,
		})
		require.Len(t, items, 1)
		meta := items[0]["metadata"].(map[string]interface{})
		assert.Equal(t, "fatura-energia.txt", meta["filename"])
	})

	t.Run("by person", func(t *testing.T) {
		items := filterItems(t, map[string]interface{}{"person": "Maria"})
		require.Len(t, items, 1)
		meta := items[0]["metadata"].(map[string]interface{})
		assert.Equal(t, "contrato-servicos.txt", meta["filename"])
	})

	t.Run("conjunction of predicates", func(t *testing.T) {
		items := filterItems(t, map[string]interface{}{
			"document_type": "invoice",
			"year":          2024,
		})
		assert.Empty(t, items)
	})

	t.Run("inverted amount range is rejected", func(t *testing.T) {
		_, err := env.Post("/filter", map[string]interface{}{
			"min_amount": 2000.0,
			"max_amount": 1000.0,
		}, env.APIToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

// TestE2E_SearchWorkflow tests the search endpoint against stored content
func TestE2E_SearchWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, err := env.Post("/content", map[string]interface{}{
		"content":  invoiceText,
		"filename": "fatura.txt",
	}, env.APIToken)
	require.NoError(t, err)

	env.WriteSource([][]string{
		{"como pedir reembolso", "abra o portal financeiro", "faq", "financeiro", "corporativo"},
	})
	_, err = env.Post("/sync", nil, env.APIToken)
	require.NoError(t, err)

	t.Run("finds matching content across provenances", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]interface{}{
			"query": "energia",
		}, env.APIToken)
		require.NoError(t, err)

		var out struct {
			Results []struct {
				ID         string  `json:"id"`
				Score      float64 `json:"score"`
				Provenance string  `json:"provenance"`
			} `json:"results"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		require.Len(t, out.Results, 1)
		assert.Equal(t, "upload", out.Results[0].Provenance)
		assert.Greater(t, out.Results[0].Score, 0.0)
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		_, err := env.Post("/search", map[string]interface{}{"query": ""}, env.APIToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

// TestE2E_CLIWorkflow tests the corpus CLI against a live server
func TestE2E_CLIWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CLI workflow in short mode")
	}

	env := SetupE2EEnv(t)
	defer env.Cleanup()

	env.BuildBinaries()
	workDir := t.TempDir()

	var contentID string

	t.Run("upload from stdin", func(t *testing.T) {
		out, err := env.RunCorpusWithInput(workDir, invoiceText, "upload", "--filename", "fatura.txt")
		require.NoError(t, err, "output: %s", out)
		assert.Contains(t, out, "Uploaded content:")
		assert.Contains(t, out, "invoice")
	})

	t.Run("list shows the upload", func(t *testing.T) {
		out, err := env.RunCorpus(workDir, "list", "--provenance", "upload", "--output")
		require.NoError(t, err, "output: %s", out)

		var list struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &list))
		require.Len(t, list.Items, 1)
		contentID = list.Items[0].ID
	})

	t.Run("get prints the document", func(t *testing.T) {
		out, err := env.RunCorpus(workDir, "get", contentID)
		require.NoError(t, err, "output: %s", out)
		assert.Contains(t, out, "NOTA FISCAL")
		assert.Contains(t, out, "Provenance: upload")
	})

	t.Run("search finds it", func(t *testing.T) {
		out, err := env.RunCorpus(workDir, "search", "energia")
		require.NoError(t, err, "output: %s", out)
		assert.Contains(t, out, contentID)
	})

	t.Run("filter finds it", func(t *testing.T) {
		out, err := env.RunCorpus(workDir, "filter", "--type", "invoice")
		require.NoError(t, err, "output: %s", out)
		assert.Contains(t, out, contentID)
	})

	t.Run("sync and status", func(t *testing.T) {
		env.WriteSource([][]string{
			{"politica de viagens", "use a agencia conveniada", "faq", "financeiro", "corporativo"},
		})

		out, err := env.RunCorpus(workDir, "sync")
		require.NoError(t, err, "output: %s", out)
		assert.Contains(t, out, "Added: 1")

		out, err = env.RunCorpus(workDir, "status")
		require.NoError(t, err, "output: %s", out)
		assert.Contains(t, out, "completed")
	})

	t.Run("delete removes the upload", func(t *testing.T) {
		out, err := env.RunCorpus(workDir, "delete", contentID)
		require.NoError(t, err, "output: %s", out)
		assert.Contains(t, out, "Deleted content:")

		out, err = env.RunCorpus(workDir, "get", contentID)
		require.Error(t, err)
		assert.Contains(t, out, "404")
	})
}
