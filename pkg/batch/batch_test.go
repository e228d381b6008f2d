package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numeros(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// TestProcess_ParticionCeil: 205 ítems con lotes de 50 → 5 lotes
// (4 de 50 y uno de 5).
func TestProcess_ParticionCeil(t *testing.T) {
	run := Process(context.Background(), numeros(205), 50, 0,
		func(_ context.Context, batch []int) ([]int, error) {
			return batch, nil
		})

	require.Len(t, run.Outcomes, 5, "ceil(205/50) = 5 lotes")
	assert.Equal(t, 50, run.Outcomes[0].Size)
	assert.Equal(t, 5, run.Outcomes[4].Size)
	assert.Len(t, run.Aggregated, 205)
	assert.True(t, run.Success())
}

// TestProcess_FalloAislado: si falla el lote 3, los lotes 1, 2, 4 y 5
// siguen corriendo y el agregado conserva sus resultados en orden.
func TestProcess_FalloAislado(t *testing.T) {
	llamada := 0
	run := Process(context.Background(), numeros(205), 50, 0,
		func(_ context.Context, batch []int) ([]int, error) {
			llamada++
			if llamada == 3 {
				return nil, errors.New("el colaborador devolvió 503")
			}
			return batch, nil
		})

	require.Len(t, run.Outcomes, 5)
	assert.Equal(t, Failed, run.Outcomes[2].Status)
	assert.Contains(t, run.Outcomes[2].FailureDetail, "503")
	assert.Equal(t, 4, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	assert.True(t, run.Success(), "con al menos un lote exitoso la corrida es exitosa")

	// agregado ordenado: lotes 1,2 (0..99) y lotes 4,5 (150..204)
	require.Len(t, run.Aggregated, 155)
	assert.Equal(t, 0, run.Aggregated[0])
	assert.Equal(t, 99, run.Aggregated[99])
	assert.Equal(t, 150, run.Aggregated[100], "tras el hueco del lote 3 sigue el lote 4 en orden")
	assert.Equal(t, 204, run.Aggregated[154])
}

// TestProcess_TodosFallan: solo cuando fallan todos los lotes la corrida
// completa se considera fallida.
func TestProcess_TodosFallan(t *testing.T) {
	run := Process(context.Background(), numeros(10), 5, 0,
		func(_ context.Context, _ []int) ([]int, error) {
			return nil, errors.New("sin cuota")
		})

	assert.False(t, run.Success())
	assert.Equal(t, 2, run.Failed)
	assert.Empty(t, run.Aggregated)
}

// TestProcess_Secuencial: los lotes jamás se procesan en paralelo.
func TestProcess_Secuencial(t *testing.T) {
	enVuelo := 0
	Process(context.Background(), numeros(30), 10, 0,
		func(_ context.Context, batch []int) ([]int, error) {
			enVuelo++
			defer func() { enVuelo-- }()
			require.Equal(t, 1, enVuelo, "nunca debe haber más de un lote en vuelo")
			time.Sleep(time.Millisecond)
			return batch, nil
		})
}

// TestProcess_ContextoCancelado: tras la cancelación los lotes restantes
// quedan marcados como fallidos sin invocar al procesador.
func TestProcess_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	run := Process(ctx, numeros(20), 5, 0,
		func(_ context.Context, batch []int) ([]int, error) {
			if batch[0] == 5 { // segundo lote
				cancel()
			}
			return batch, nil
		})

	require.Len(t, run.Outcomes, 4)
	assert.Equal(t, Succeeded, run.Outcomes[0].Status)
	assert.Equal(t, Succeeded, run.Outcomes[1].Status)
	assert.Equal(t, Failed, run.Outcomes[2].Status)
	assert.Equal(t, Failed, run.Outcomes[3].Status)
	for _, o := range run.Outcomes[2:] {
		assert.Contains(t, o.FailureDetail, "contexto cancelado")
	}
}

// TestProcess_ProcedenciaDeLote: cada resultado conserva el índice del
// lote que lo produjo.
func TestProcess_ProcedenciaDeLote(t *testing.T) {
	run := Process(context.Background(), numeros(7), 3, 0,
		func(_ context.Context, batch []int) ([]string, error) {
			out := make([]string, len(batch))
			for i, v := range batch {
				out[i] = fmt.Sprintf("r%d", v)
			}
			return out, nil
		})

	require.Len(t, run.Outcomes, 3)
	for i, o := range run.Outcomes {
		assert.Equal(t, i, o.Index)
	}
	assert.Equal(t, []string{"r6"}, run.Outcomes[2].Results)
}
